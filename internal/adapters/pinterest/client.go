// Package pinterest exchanges OAuth codes and publishes pins with a
// caller-supplied access token.
package pinterest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

const DefaultBaseURL = "https://api.pinterest.com/v5"

// Token is the authorization-code exchange response.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// PinRequest describes one image pin. ImageURL may be an http(s) URL or a
// base64 data URL.
type PinRequest struct {
	BoardID     string `json:"board_id" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	ImageURL    string `json:"image_url" binding:"required"`
}

// Pin is a created pin.
type Pin struct {
	ID   string `json:"id"`
	Link string `json:"link,omitempty"`
}

// Client talks to the Pinterest v5 API.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	baseURL      string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewClient creates a new Client. An empty baseURL uses DefaultBaseURL.
func NewClient(clientID, clientSecret, redirectURI, baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger.With().Str("component", "pinterest").Logger(),
	}
}

// ExchangeCode trades an authorization code for a token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, fmt.Errorf("pinterest app credentials missing: %w", domain.ErrNotConfigured)
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("authorization code is empty")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)

	endpoint := c.baseURL + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token Token
	if err := c.do(req, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token: %w", domain.ErrMalformedPayload)
	}
	return &token, nil
}

// CreatePin publishes a pin. The token is checked before any network call.
func (c *Client) CreatePin(ctx context.Context, accessToken string, in PinRequest) (*Pin, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, domain.ErrNotConnected
	}

	source, err := mediaSource(in.ImageURL)
	if err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"board_id":     in.BoardID,
		"title":        in.Title,
		"description":  in.Description,
		"media_source": source,
	}
	if in.Link != "" {
		payload["link"] = in.Link
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode pin: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pins", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create pin request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	var pin Pin
	if err := c.do(req, &pin); err != nil {
		return nil, err
	}
	if pin.ID == "" {
		return nil, fmt.Errorf("pin response has no id: %w", domain.ErrMalformedPayload)
	}
	c.logger.Info().Str("pin_id", pin.ID).Str("board_id", in.BoardID).Msg("pin created")
	return &pin, nil
}

// mediaSource picks image_url or image_base64 depending on the input.
func mediaSource(image string) (map[string]string, error) {
	switch {
	case strings.HasPrefix(image, "data:"):
		meta, data, ok := strings.Cut(strings.TrimPrefix(image, "data:"), ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("unsupported data url")
		}
		return map[string]string{
			"source_type":  "image_base64",
			"content_type": strings.TrimSuffix(meta, ";base64"),
			"data":         data,
		}, nil
	case strings.HasPrefix(image, "http://"), strings.HasPrefix(image, "https://"):
		return map[string]string{"source_type": "image_url", "url": image}, nil
	}
	return nil, fmt.Errorf("image must be an http(s) or data url")
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinterest request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read pinterest response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("pinterest rejected the token: %w", domain.ErrNotConnected)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Message string `json:"message"`
		}
		msg := string(body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &domain.HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: msg}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode pinterest response: %w", domain.ErrMalformedPayload)
	}
	return nil
}
