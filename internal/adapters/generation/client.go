// Package generation is the HTTP client for the asynchronous video
// generation task API.
package generation

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
	gen "videominer/internal/generation"
)

// Client implements generation.TaskAPI.
type Client struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	logger       zerolog.Logger
}

// NewClient creates a new Client.
func NewClient(apiKey, baseURL, defaultModel string, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "generation-api").Logger(),
	}
}

// Create submits a task and returns its id. A response without an id is a
// malformed payload, never retried.
func (c *Client) Create(ctx context.Context, params gen.CreateParams) (string, error) {
	if params.Model == "" {
		params.Model = c.defaultModel
	}
	raw, err := c.post(ctx, "/create", params)
	if err != nil {
		return "", err
	}

	taskID := firstString(raw, "task_id", "id")
	if taskID == "" {
		if data, ok := raw["data"].(map[string]interface{}); ok {
			taskID = firstString(data, "task_id", "id")
		}
	}
	if taskID == "" {
		return "", fmt.Errorf("create response has no task_id: %w", domain.ErrMalformedPayload)
	}
	c.logger.Debug().Str("task_id", taskID).Str("model", params.Model).Msg("task submitted")
	return taskID, nil
}

// Query fetches the current status of a task.
func (c *Client) Query(ctx context.Context, taskID string) (gen.PollResponse, error) {
	raw, err := c.post(ctx, "/query", map[string]string{"task_id": taskID})
	if err != nil {
		return gen.PollResponse{}, err
	}
	if data, ok := raw["data"].(map[string]interface{}); ok && firstString(raw, "status") == "" {
		raw = data
	}

	resp := gen.PollResponse{Status: NormalizeStatus(firstString(raw, "status", "task_status", "state"))}
	if output, ok := raw["output"].(map[string]interface{}); ok {
		resp.VideoURL = firstString(output, "video_url", "media_url", "url")
	}
	if resp.VideoURL == "" {
		resp.VideoURL = firstString(raw, "video_url", "media_url")
	}
	resp.Error = firstString(raw, "error", "error_msg", "fail_reason")
	if errObj, ok := raw["error"].(map[string]interface{}); ok {
		resp.Error = firstString(errObj, "message")
	}
	return resp, nil
}

// NormalizeStatus maps the many status spellings onto the four remote phases.
// Unknown values are treated as still processing.
func NormalizeStatus(status string) gen.Phase {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued", "pending", "submitted", "waiting", "created":
		return gen.PhaseQueued
	case "completed", "complete", "succeeded", "success", "done", "finished":
		return gen.PhaseCompleted
	case "failed", "fail", "failure", "error", "cancelled", "canceled":
		return gen.PhaseFailed
	case "":
		return ""
	}
	return gen.PhaseProcessing
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (map[string]interface{}, error) {
	if c.apiKey == "" || c.baseURL == "" {
		return nil, fmt.Errorf("generation api not configured: %w", domain.ErrNotConfigured)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet := string(respBytes)
		if len(snippet) > 300 {
			snippet = snippet[:300] + "..."
		}
		return nil, &domain.HTTPError{StatusCode: resp.StatusCode, URL: endpoint, Body: snippet}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(respBytes, &raw); err != nil {
		return nil, fmt.Errorf("invalid json from %s: %w", path, domain.ErrMalformedPayload)
	}
	return raw, nil
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
