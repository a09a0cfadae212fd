package aigateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

func newServer(t *testing.T, status int, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteText(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"choices":[{"message":{"content":" hello "}}]}`, func(r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var in Request
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Model != "text-model" {
			t.Errorf("model = %q", in.Model)
		}
	})

	c := NewClient("k", srv.URL, "text-model", "image-model", zerolog.Nop())
	out, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out.Text != "hello" {
		t.Errorf("Text = %q", out.Text)
	}
}

func TestGenerateImage(t *testing.T) {
	tests := map[string]string{
		"images field":  `{"choices":[{"message":{"content":"here","images":[{"type":"image_url","image_url":{"url":"data:image/png;base64,AAA"}}]}}]}`,
		"content parts": `{"choices":[{"message":{"content":[{"type":"text","text":"here"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAA"}}]}}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, body, func(r *http.Request) {
				var in Request
				json.NewDecoder(r.Body).Decode(&in)
				if in.Model != "image-model" || len(in.Modalities) != 2 {
					t.Errorf("request = %+v", in)
				}
			})
			c := NewClient("k", srv.URL, "text-model", "image-model", zerolog.Nop())
			img, err := c.GenerateImage(context.Background(), "a red mug")
			if err != nil {
				t.Fatalf("GenerateImage() error = %v", err)
			}
			if img != "data:image/png;base64,AAA" {
				t.Errorf("image = %q", img)
			}
		})
	}
}

func TestGenerateImageMissing(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"choices":[{"message":{"content":"sorry"}}]}`, nil)
	c := NewClient("k", srv.URL, "t", "i", zerolog.Nop())
	if _, err := c.GenerateImage(context.Background(), "x"); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Errorf("error = %v, want ErrMalformedPayload", err)
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusPaymentRequired, domain.ErrInsufficientCredits},
	}
	for _, tt := range tests {
		srv := newServer(t, tt.status, `{"error":{"message":"nope"}}`, nil)
		c := NewClient("k", srv.URL, "t", "i", zerolog.Nop())
		_, err := c.Complete(context.Background(), Request{})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
		var httpErr *domain.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Body != "nope" {
			t.Errorf("status %d: error = %#v", tt.status, err)
		}
	}
}

func TestCaptions(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"choices":[{"message":{"content":"1. First caption #a\n2) \"Second caption #b\"\n\n- Third #c\n4. Fourth"}}]}`, nil)
	c := NewClient("k", srv.URL, "t", "i", zerolog.Nop())

	got, err := c.Captions(context.Background(), CaptionRequest{ProductName: "Mug", Count: 3})
	if err != nil {
		t.Fatalf("Captions() error = %v", err)
	}
	want := []string{"First caption #a", "Second caption #b", "Third #c"}
	if len(got) != len(want) {
		t.Fatalf("Captions() = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("caption %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNotConfigured(t *testing.T) {
	c := NewClient("", "", "t", "i", zerolog.Nop())
	if _, err := c.Complete(context.Background(), Request{}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("error = %v", err)
	}
}
