// Package firecrawl renders JavaScript-heavy pages through the Firecrawl API.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

const (
	DefaultBaseURL = "https://api.firecrawl.dev"
	DefaultWaitFor = 5 * time.Second
)

// Client implements ports.Renderer using the Firecrawl REST API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a new Client. An empty baseURL uses DefaultBaseURL.
func NewClient(apiKey, baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
		logger: logger.With().Str("component", "firecrawl").Logger(),
	}
}

// Configured reports whether an API key was supplied.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Render returns the HTML snapshot of pageURL after waiting waitFor for
// client-side rendering to settle.
func (c *Client) Render(ctx context.Context, pageURL string, waitFor time.Duration) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("firecrawl api key missing: %w", domain.ErrNotConfigured)
	}
	if waitFor <= 0 {
		waitFor = DefaultWaitFor
	}

	input := map[string]interface{}{
		"url":     pageURL,
		"formats": []string{"html"},
		"waitFor": waitFor.Milliseconds(),
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scrape request: %w", err)
	}

	endpoint := c.baseURL + "/v1/scrape"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call scrape endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.HTTPError{StatusCode: resp.StatusCode, URL: endpoint, Body: string(respBody)}
	}

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    *struct {
			HTML    string `json:"html"`
			RawHTML string `json:"rawHtml"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scrape response: %w", domain.ErrMalformedPayload)
	}

	if result.Data == nil {
		if result.Error != "" {
			return nil, fmt.Errorf("scrape failed: %s", result.Error)
		}
		return nil, fmt.Errorf("scrape response has no data: %w", domain.ErrMalformedPayload)
	}
	html := result.Data.HTML
	if html == "" {
		html = result.Data.RawHTML
	}
	if html == "" {
		return nil, fmt.Errorf("scrape response has no html: %w", domain.ErrMalformedPayload)
	}

	c.logger.Debug().Str("url", pageURL).Dur("took", time.Since(start)).Int("bytes", len(html)).Msg("page rendered")
	return []byte(html), nil
}
