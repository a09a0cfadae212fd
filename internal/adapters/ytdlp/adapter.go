package ytdlp

import (
	"context"

	"videominer/internal/adapters/searchlink"
	"videominer/internal/core/domain"
)

// Adapter mines YouTube through yt-dlp search. Without the binary it degrades
// to a YouTube search link.
type Adapter struct {
	client *Client
	limit  int
}

// NewAdapter creates a new Adapter returning up to limit videos.
func NewAdapter(client *Client, limit int) *Adapter {
	return &Adapter{client: client, limit: limit}
}

func (a *Adapter) Source() domain.Source { return domain.SourceYouTube }

func (a *Adapter) Mine(ctx context.Context, identity domain.ProductIdentity) ([]domain.VideoRecord, error) {
	if a.client == nil || !a.client.Available() {
		return searchLink(identity)
	}

	results, err := a.client.Search(ctx, identity.Query(), a.limit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return searchLink(identity)
	}

	records := make([]domain.VideoRecord, 0, len(results))
	for _, r := range results {
		rec := domain.NewVideoRecord(domain.SourceYouTube, r.WatchURL(), r.Title)
		rec.ThumbnailURL = r.ThumbnailURL()
		rec.Duration = r.Duration
		rec.Author = r.Channel
		rec.SourceURL = identity.CanonicalURL
		records = append(records, rec)
	}
	return records, nil
}

func searchLink(identity domain.ProductIdentity) ([]domain.VideoRecord, error) {
	rec, err := searchlink.Record(domain.SourceYouTube, identity)
	if err != nil {
		return nil, err
	}
	return []domain.VideoRecord{rec}, nil
}
