// Package aigateway talks to an OpenAI-compatible chat-completions gateway.
package aigateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	requestTimeout = 2 * time.Minute
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat-completions call. Modalities is set for image output.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Modalities  []string  `json:"modalities,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Completion is the normalized first choice of a response.
type Completion struct {
	Text   string
	Images []string // data URLs or http(s) URLs
}

// Client calls the gateway with a bearer key.
type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Client. An empty baseURL uses DefaultBaseURL.
func NewClient(apiKey, baseURL, textModel, imageModel string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		textModel:  textModel,
		imageModel: imageModel,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With().Str("component", "aigateway").Logger(),
	}
}

// Complete sends one chat-completions request.
func (c *Client) Complete(ctx context.Context, in Request) (*Completion, error) {
	if err := c.ensureAPIKey(); err != nil {
		return nil, err
	}
	if in.Model == "" {
		in.Model = c.textModel
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return nil, fmt.Errorf("encode completion payload: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp, endpoint)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
				Images  []struct {
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"images"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned: %w", domain.ErrMalformedPayload)
	}

	msg := response.Choices[0].Message
	out := &Completion{}
	out.Text, out.Images = parseContent(msg.Content)
	for _, img := range msg.Images {
		if img.ImageURL.URL != "" {
			out.Images = append(out.Images, img.ImageURL.URL)
		}
	}

	c.logger.Debug().Str("model", in.Model).Dur("took", time.Since(start)).Int("images", len(out.Images)).Msg("completion")
	return out, nil
}

// parseContent accepts a plain string or a list of typed content parts.
func parseContent(raw json.RawMessage) (string, []string) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var parts []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", nil
	}
	var texts, images []string
	for _, p := range parts {
		switch p.Type {
		case "text":
			texts = append(texts, p.Text)
		case "image_url":
			if p.ImageURL.URL != "" {
				images = append(images, p.ImageURL.URL)
			}
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), images
}

// GenerateImage asks the image model for one image and returns it as a data
// URL or plain URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	out, err := c.Complete(ctx, Request{
		Model:      c.imageModel,
		Messages:   []Message{{Role: "user", Content: prompt}},
		Modalities: []string{"image", "text"},
	})
	if err != nil {
		return "", err
	}
	if len(out.Images) == 0 {
		return "", fmt.Errorf("no image in response: %w", domain.ErrMalformedPayload)
	}
	return out.Images[0], nil
}

// CaptionRequest describes a batch of social captions for one product.
type CaptionRequest struct {
	ProductName string
	Platform    string
	Language    string
	Count       int
}

var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// Captions generates short marketing captions, one per returned line.
func (c *Client) Captions(ctx context.Context, in CaptionRequest) ([]string, error) {
	if in.Count <= 0 {
		in.Count = 3
	}
	if in.Platform == "" {
		in.Platform = "TikTok"
	}
	lang := "English"
	if strings.HasPrefix(strings.ToLower(in.Language), "vi") {
		lang = "Vietnamese"
	}

	prompt := fmt.Sprintf(
		"Write %d short %s captions in %s for the product %q. Include two or three hashtags in each. Return one caption per line without numbering.",
		in.Count, in.Platform, lang, in.ProductName)

	out, err := c.Complete(ctx, Request{
		Messages: []Message{
			{Role: "system", Content: "You write concise social media copy for product videos."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return nil, err
	}

	var captions []string
	for _, line := range strings.Split(out.Text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"`)
		if line != "" {
			captions = append(captions, line)
		}
	}
	if len(captions) == 0 {
		return nil, fmt.Errorf("no captions returned: %w", domain.ErrMalformedPayload)
	}
	if len(captions) > in.Count {
		captions = captions[:in.Count]
	}
	return captions, nil
}

func (c *Client) ensureAPIKey() error {
	if c.apiKey == "" {
		return fmt.Errorf("ai gateway key missing: %w", domain.ErrNotConfigured)
	}
	return nil
}

// decodeAPIError keeps the status code so 429 and 402 stay distinguishable.
func decodeAPIError(resp *http.Response, endpoint string) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	return &domain.HTTPError{StatusCode: resp.StatusCode, URL: endpoint, Body: msg}
}
