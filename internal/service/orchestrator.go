package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"videominer/internal/adapters/rediscache"
	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

// DefaultAdapterTimeout bounds each adapter in a mining request.
const DefaultAdapterTimeout = 15 * time.Second

// Orchestrator fans a product identity out to every enabled source adapter and
// merges what comes back.
type Orchestrator struct {
	identity ports.IdentityExtractor
	adapters map[domain.Source][]ports.Adapter
	cache    ports.ResultCache
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator. Several adapters may serve the same
// source; they run in registration order. A nil cache disables caching and
// timeout <= 0 uses DefaultAdapterTimeout.
func NewOrchestrator(
	identity ports.IdentityExtractor,
	adapters []ports.Adapter,
	cache ports.ResultCache,
	timeout time.Duration,
	logger zerolog.Logger,
) *Orchestrator {
	if cache == nil {
		cache = rediscache.Noop{}
	}
	if timeout <= 0 {
		timeout = DefaultAdapterTimeout
	}
	bySource := make(map[domain.Source][]ports.Adapter)
	for _, a := range adapters {
		bySource[a.Source()] = append(bySource[a.Source()], a)
	}
	return &Orchestrator{
		identity: identity,
		adapters: bySource,
		cache:    cache,
		timeout:  timeout,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

type adapterOutcome struct {
	records []domain.VideoRecord
	err     string
}

// Mine extracts the product identity behind rawURL and queries every enabled
// source. It never fails as a whole once the identity is known: adapter
// failures become "<source>: <message>" entries in Errors.
func (o *Orchestrator) Mine(ctx context.Context, rawURL string, sources domain.SourceSet) domain.MiningResult {
	logger := o.logger.With().Str("request_id", uuid.New().String()).Logger()
	logger.Info().Str("url", rawURL).Interface("sources", sources.Ordered()).Msg("mining started")

	key := rediscache.Key(rawURL, sources)
	if cached, ok := o.cache.Get(ctx, key); ok {
		logger.Info().Int("videos", len(cached.Videos)).Msg("served from cache")
		return *cached
	}

	identity, err := o.identity.Extract(ctx, rawURL)
	if err != nil {
		logger.Warn().Err(err).Msg("identity extraction failed")
		return domain.MiningResult{
			Success:  false,
			Keywords: []string{},
			Videos:   []domain.VideoRecord{},
			Errors:   []string{err.Error()},
		}
	}

	var enabled []ports.Adapter
	for _, src := range sources.Ordered() {
		enabled = append(enabled, o.adapters[src]...)
	}

	outcomes := make([]adapterOutcome, len(enabled))
	var g errgroup.Group
	for i, a := range enabled {
		i, a := i, a
		g.Go(func() error {
			outcomes[i] = o.runAdapter(ctx, a, identity)
			return nil
		})
	}
	g.Wait()

	result := domain.MiningResult{
		Success:     true,
		ProductName: identity.Name,
		Keywords:    identity.Keywords,
		Videos:      []domain.VideoRecord{},
	}
	for i, out := range outcomes {
		if out.err != "" {
			result.Errors = append(result.Errors, out.err)
			continue
		}
		for _, rec := range out.records {
			if rec.VideoURL == "" {
				continue
			}
			if rec.ID == "" {
				rec.ID = domain.RecordID(rec.VideoURL)
			}
			if rec.Source == "" {
				rec.Source = enabled[i].Source()
			}
			result.Videos = append(result.Videos, rec)
		}
	}
	result.Videos = DedupeByVideoURL(result.Videos)

	logger.Info().
		Str("product", identity.Name).
		Int("videos", len(result.Videos)).
		Int("errors", len(result.Errors)).
		Msg("mining finished")

	if len(result.Errors) == 0 {
		if err := o.cache.Set(ctx, key, result); err != nil {
			logger.Warn().Err(err).Msg("failed to cache result")
		}
	}
	return result
}

// runAdapter runs one adapter under its own deadline. A hung adapter is
// abandoned once the deadline passes; its goroutine drains into a buffered channel.
func (o *Orchestrator) runAdapter(ctx context.Context, a ports.Adapter, identity domain.ProductIdentity) adapterOutcome {
	src := a.Source()
	actx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan adapterOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error().Str("source", string(src)).Interface("panic", r).Msg("adapter panicked")
				done <- adapterOutcome{err: fmt.Sprintf("%s: internal error: %v", src, r)}
			}
		}()
		records, err := a.Mine(actx, identity)
		if err != nil {
			done <- adapterOutcome{err: o.describe(ctx, src, err)}
			return
		}
		done <- adapterOutcome{records: records}
	}()

	select {
	case out := <-done:
		if out.err != "" {
			o.logger.Warn().Str("source", string(src)).Str("error", out.err).Msg("adapter failed")
		}
		return out
	case <-actx.Done():
		o.logger.Warn().Str("source", string(src)).Dur("timeout", o.timeout).Msg("adapter abandoned")
		return adapterOutcome{err: o.describe(ctx, src, actx.Err())}
	}
}

func (o *Orchestrator) describe(parent context.Context, src domain.Source, err error) string {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Sprintf("%s: timed out after %s", src, o.timeout)
	}
	return fmt.Sprintf("%s: %v", src, err)
}

// DedupeByVideoURL keeps the first record for each exact video URL.
func DedupeByVideoURL(records []domain.VideoRecord) []domain.VideoRecord {
	seen := make(map[string]bool, len(records))
	out := make([]domain.VideoRecord, 0, len(records))
	for _, rec := range records {
		if seen[rec.VideoURL] {
			continue
		}
		seen[rec.VideoURL] = true
		out = append(out, rec)
	}
	return out
}
