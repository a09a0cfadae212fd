package shopee

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"videominer/internal/adapters/fetcher"
	"videominer/internal/core/domain"
)

const itemPayload = `{
  "error": null,
  "data": {
    "item": {
      "name": "Tai nghe Bluetooth Pro",
      "image": "hash-main",
      "images": ["hash-main", "hash-2", "https://cdn.example.com/abs.jpg"],
      "tier_variations": [
        {"name": "Color", "options": ["Black", "White", "Black copy"], "images": ["hash-black", "hash-white", "hash-black"]}
      ],
      "video_info_list": [
        {"video_id": "v1", "thumb_url": "hash-thumb", "duration": 75, "default_format": {"url": "https://cvf.example.com/v1.mp4"}},
        {"video_id": "v2", "formats": [{"url": "https://cvf.example.com/v2-low.mp4"}, {"url": "https://cvf.example.com/v2-hd.mp4"}]},
        {"video_id": "v3"}
      ]
    }
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcherWithClient(srv.Client())
	return NewClient(f, srv.URL, "https://img.example.com/file", zerolog.Nop()), srv
}

func TestGetItemRotatesSignatures(t *testing.T) {
	var attempts int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		if r.URL.Path != "/api/v4/item/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("itemid") != "222" || r.URL.Query().Get("shopid") != "111" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if !strings.Contains(r.Header.Get("User-Agent"), "iPhone") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(itemPayload))
	})

	item, err := client.GetItem(context.Background(), "111", "222")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("attempts = %d, want 2 (desktop blocked, mobile accepted)", got)
	}
	if item.Method != "mobile /api/v4/item/get" {
		t.Errorf("Method = %q", item.Method)
	}

	wantImages := []string{
		"https://img.example.com/file/hash-main",
		"https://img.example.com/file/hash-2",
		"https://cdn.example.com/abs.jpg",
	}
	if strings.Join(item.Images, ",") != strings.Join(wantImages, ",") {
		t.Errorf("Images = %v", item.Images)
	}
	if item.MainImage != wantImages[0] {
		t.Errorf("MainImage = %q", item.MainImage)
	}
	if len(item.VariantImages) != 2 {
		t.Fatalf("VariantImages = %+v, want 2 after dedupe", item.VariantImages)
	}
	if item.VariantImages[1].Option != "White" || item.VariantImages[1].Name != "Color" {
		t.Errorf("VariantImages[1] = %+v", item.VariantImages[1])
	}
	if len(item.Videos) != 2 {
		t.Fatalf("Videos = %+v, want 2", item.Videos)
	}
	if item.Videos[1].URL != "https://cvf.example.com/v2-hd.mp4" {
		t.Errorf("Videos[1].URL = %q", item.Videos[1].URL)
	}
	if item.Videos[0].ThumbnailURL != "https://img.example.com/file/hash-thumb" {
		t.Errorf("Videos[0].ThumbnailURL = %q", item.Videos[0].ThumbnailURL)
	}
}

func TestGetItemFallsThroughEndpoints(t *testing.T) {
	var attempts int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		switch r.URL.Path {
		case "/api/v4/item/get":
			w.Write([]byte(`{"error": 90309999, "error_msg": "blocked"}`))
		case "/api/v4/pdp/get_pc":
			w.Write([]byte(`{"error": 0, "data": {"item": {"name": "No pictures", "images": []}}}`))
		default:
			w.Write([]byte(`{"item": {"name": "Legacy", "images": ["h1"]}}`))
		}
	})

	item, err := client.GetItem(context.Background(), "1", "2")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if item.Name != "Legacy" {
		t.Errorf("Name = %q", item.Name)
	}
	if got := atomic.LoadInt32(&attempts); got != 7 {
		t.Errorf("attempts = %d, want 7", got)
	}
}

func TestGetItemAllFail(t *testing.T) {
	var attempts int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.GetItem(context.Background(), "1", "2")
	if err == nil {
		t.Fatal("expected error")
	}
	var httpErr *domain.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("error = %v, want wrapped 403", err)
	}
	if want := int32(len(Endpoints) * len(Signatures)); atomic.LoadInt32(&attempts) != want {
		t.Errorf("attempts = %d, want %d", attempts, want)
	}
}

func TestGetItemRequiresIDs(t *testing.T) {
	client := NewClient(nil, "", "", zerolog.Nop())
	if _, err := client.GetItem(context.Background(), "", "2"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("error = %v", err)
	}
}

func TestAdapterMine(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(itemPayload))
	})
	adapter := NewAdapter(client)

	identity := domain.ProductIdentity{
		CanonicalURL: "https://shopee.vn/x-i.111.222",
		ShopID:       "111",
		ItemID:       "222",
		Name:         "x",
		Keywords:     []string{"x"},
	}
	records, err := adapter.Mine(context.Background(), identity)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Duration != "1:15" || records[0].Title != "Tai nghe Bluetooth Pro" {
		t.Errorf("records[0] = %+v", records[0])
	}
	if records[0].SourceURL != identity.CanonicalURL || records[0].IsSearchLink {
		t.Errorf("records[0] = %+v", records[0])
	}
}

func TestAdapterMineWithoutIDsReturnsSearchLink(t *testing.T) {
	adapter := NewAdapter(NewClient(nil, "", "", zerolog.Nop()))
	records, err := adapter.Mine(context.Background(), domain.ProductIdentity{
		CanonicalURL: "https://example.com/p/phone-case",
		Name:         "phone case",
		Keywords:     []string{"phone", "case"},
	})
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(records) != 1 || !records[0].IsSearchLink {
		t.Fatalf("records = %+v", records)
	}
}
