package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"videominer/internal/core/domain"
)

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/product/Cool-Shoes-i.11.22", http.StatusFound)
	})
	mux.HandleFunc("/product/", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
			t.Errorf("User-Agent = %q, want browser signature", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<title>Cool Shoes</title>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewHTTPFetcherWithClient(server.Client())
	page, err := f.Fetch(context.Background(), server.URL+"/short", nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if page.URL != server.URL+"/product/Cool-Shoes-i.11.22" {
		t.Errorf("page.URL = %q, want final redirect target", page.URL)
	}
	if string(page.Body) != "<title>Cool Shoes</title>" {
		t.Errorf("page.Body = %q", page.Body)
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := NewHTTPFetcherWithClient(server.Client())
	_, err := f.Fetch(context.Background(), server.URL, nil)

	var httpErr *domain.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Fetch() error = %v, want *domain.HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", httpErr.StatusCode)
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer server.Close()

	f := NewHTTPFetcherWithClient(server.Client())
	rc, err := f.Download(context.Background(), server.URL+"/v.mp4")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "video-bytes" {
		t.Errorf("Download() body = %q", data)
	}
}
