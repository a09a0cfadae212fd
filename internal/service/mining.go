package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

// ChainAdapter mines one source through an ordered fallback chain.
type ChainAdapter struct {
	source domain.Source
	chain  *Chain[domain.ProductIdentity, []domain.VideoRecord]
}

// NewChainAdapter creates an adapter for source that tries steps in order.
func NewChainAdapter(source domain.Source, logger zerolog.Logger, steps ...Step[domain.ProductIdentity, []domain.VideoRecord]) *ChainAdapter {
	return &ChainAdapter{
		source: source,
		chain: NewChain(logger.With().Str("chain", "mine_"+string(source)).Logger(),
			func(records []domain.VideoRecord) bool { return len(records) == 0 },
			steps...),
	}
}

func (a *ChainAdapter) Source() domain.Source { return a.source }

// Mine returns the first non-empty step result. When every step comes up
// empty the step failures are folded into the error.
func (a *ChainAdapter) Mine(ctx context.Context, identity domain.ProductIdentity) ([]domain.VideoRecord, error) {
	out, err := a.chain.Run(ctx, identity)
	if err != nil {
		if len(out.Failures) > 0 {
			return nil, fmt.Errorf("%w (%s)", err, strings.Join(out.Failures, "; "))
		}
		return nil, err
	}
	return out.Value, nil
}

// ShopeeMiningAdapter mines Shopee with primary first, typically the internal
// API adapter, then the page, rendered page and yt-dlp steps of the video
// chain. The fallback steps only run for links carrying shop and item ids so
// a foreign product page is never reported as a Shopee video.
func (e *Extractors) ShopeeMiningAdapter(primary ports.Adapter) *ChainAdapter {
	var steps []Step[domain.ProductIdentity, []domain.VideoRecord]
	if primary != nil {
		steps = append(steps, Step[domain.ProductIdentity, []domain.VideoRecord]{
			Name: StepInternalAPI,
			Run:  primary.Mine,
		})
	}
	for _, step := range e.videoSteps() {
		if step.Name == StepInternalAPI {
			continue
		}
		steps = append(steps, recordStep(step))
	}
	return NewChainAdapter(domain.SourceShopee, e.logger, steps...)
}

func recordStep(step Step[domain.ProductIdentity, domain.ExtractedVideo]) Step[domain.ProductIdentity, []domain.VideoRecord] {
	return Step[domain.ProductIdentity, []domain.VideoRecord]{
		Name: step.Name,
		Run: func(ctx context.Context, id domain.ProductIdentity) ([]domain.VideoRecord, error) {
			if !id.HasIDs() {
				return nil, nil
			}
			v, err := step.Run(ctx, id)
			if err != nil || v.VideoURL == "" {
				return nil, err
			}
			rec := domain.NewVideoRecord(domain.SourceShopee, v.VideoURL, firstNonEmpty(v.Title, id.Name))
			rec.ThumbnailURL = v.ThumbnailURL
			rec.Duration = v.Duration
			rec.Author = v.Author
			rec.SourceURL = id.CanonicalURL
			return []domain.VideoRecord{rec}, nil
		},
	}
}
