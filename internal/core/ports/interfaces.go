package ports

import (
	"context"
	"io"
	"time"

	"videominer/internal/core/domain"
)

// Page is a fetched document after redirects were followed.
type Page struct {
	URL         string // Final URL after redirects
	StatusCode  int
	ContentType string
	Body        []byte
}

// PageFetcher defines the contract for fetching HTML pages.
type PageFetcher interface {
	// Fetch performs a GET with redirect-follow and returns the final page.
	// Non-2xx responses are returned as *domain.HTTPError.
	Fetch(ctx context.Context, pageURL string, headers map[string]string) (*Page, error)
}

// Renderer defines the contract for a JavaScript rendering service.
type Renderer interface {
	// Render returns the HTML snapshot of pageURL after waiting for client-side rendering.
	Render(ctx context.Context, pageURL string, waitFor time.Duration) ([]byte, error)
}

// IdentityExtractor derives a ProductIdentity from a raw URL.
type IdentityExtractor interface {
	Extract(ctx context.Context, rawURL string) (domain.ProductIdentity, error)
}

// Adapter queries one external source for videos related to a product.
type Adapter interface {
	// Source names the platform the records belong to.
	Source() domain.Source

	// Mine returns zero or more normalized records. Errors are reported to the
	// caller and never abort sibling adapters.
	Mine(ctx context.Context, identity domain.ProductIdentity) ([]domain.VideoRecord, error)
}

// ResultCache memoizes mining results for a short time.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.MiningResult, bool)
	Set(ctx context.Context, key string, result domain.MiningResult) error
}

// Downloader defines the contract for downloading media files.
type Downloader interface {
	// Download fetches the media from the given URL.
	// Returns a ReadCloser that the caller must close.
	Download(ctx context.Context, mediaURL string) (io.ReadCloser, error)
}

// Storage defines the contract for persisting download job artifacts on the client.
type Storage interface {
	// InitJob creates the job directory structure.
	InitJob(ctx context.Context, jobID string) error

	// SaveInput saves the job input metadata (URL, timestamp, etc.).
	SaveInput(ctx context.Context, jobID string, data []byte) error

	// SaveMetadata saves the record that described the media.
	SaveMetadata(ctx context.Context, jobID string, data []byte) error

	// SaveVideo saves the video file from the provided reader.
	SaveVideo(ctx context.Context, jobID string, reader io.Reader, filename string) error

	// GetJobPath returns the filesystem path for a given job ID.
	GetJobPath(jobID string) string
}
