package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

// DefaultUserAgent is sent when the caller does not override User-Agent.
// Many storefronts return 403 or a bot wall for the default Go client signature.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const maxPageBytes = 8 << 20

// HTTPFetcher implements ports.PageFetcher and ports.Downloader using standard HTTP.
type HTTPFetcher struct {
	client         *http.Client
	downloadClient *http.Client
	userAgent      string
}

// NewHTTPFetcher creates a new HTTPFetcher. Page fetches are bounded by timeout;
// downloads get a much longer budget since videos can be large.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		downloadClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
		userAgent: DefaultUserAgent,
	}
}

// NewHTTPFetcherWithClient wraps an existing client, mainly for tests.
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client, downloadClient: client, userAgent: DefaultUserAgent}
}

// Fetch performs a GET with redirect-follow and reads the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, headers map[string]string) (*ports.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,vi;q=0.8")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", pageURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.HTTPError{StatusCode: resp.StatusCode, URL: resp.Request.URL.String()}
	}

	return &ports.Page{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Download fetches the media from the given URL.
func (f *HTTPFetcher) Download(ctx context.Context, mediaURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &domain.HTTPError{StatusCode: resp.StatusCode, URL: mediaURL}
	}

	return resp.Body, nil
}
