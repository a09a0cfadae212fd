package affiliate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

func TestSignKnownVector(t *testing.T) {
	got := Sign("12345", 1700000000, `{"query":"{ x }"}`, "s3cret")
	want := "96e206f9d863149c12988bc87779e1f426afe1b90317e9c1b9266857442a5cbe"
	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestAuthorizationHeader(t *testing.T) {
	got := AuthorizationHeader("12345", 1700000000, `{"query":"{ x }"}`, "s3cret")
	want := "SHA256 Credential=12345, Timestamp=1700000000, Signature=96e206f9d863149c12988bc87779e1f426afe1b90317e9c1b9266857442a5cbe"
	if got != want {
		t.Errorf("AuthorizationHeader() = %s", got)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("app", "secret", srv.URL, zerolog.Nop())
	c.httpClient = srv.Client()
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

const offersResponse = `{"data":{"productOfferV2":{"nodes":[
  {"itemId": 999, "shopId": 111, "productName": "Other case", "productLink": "https://shopee.vn/product/111/999", "imageUrl": "https://img/other.jpg"},
  {"itemId": 12345, "shopId": 111, "productName": "Near miss", "productLink": "https://shopee.vn/product/111/123456", "imageUrl": "https://img/near.jpg"},
  {"itemId": null, "shopId": "111", "productName": "Target case", "productLink": "https://shopee.vn/Target-i.111.123456789", "imageUrl": "https://img/target.jpg"},
  {"itemId": 5, "shopId": 111, "productName": "Last", "productLink": "https://shopee.vn/product/111/5", "imageUrl": "https://img/last.jpg"}
]}}}`

func TestFindByShopExactMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		wantAuth := AuthorizationHeader("app", 1700000000, string(body), "secret")
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Errorf("Authorization = %q, want %q", got, wantAuth)
		}

		var payload struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
			return
		}
		if !strings.Contains(payload.Query, "shopId: 111") {
			t.Errorf("query = %s", payload.Query)
		}
		w.Write([]byte(offersResponse))
	})

	offer, err := c.FindByShop(context.Background(), "111", "123456789")
	if err != nil {
		t.Fatalf("FindByShop() error = %v", err)
	}
	if offer == nil {
		t.Fatal("FindByShop() = nil, want the target offer")
	}
	if offer.ProductName != "Target case" {
		t.Errorf("offer = %+v", offer)
	}
}

func TestFindByKeywordNoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(offersResponse))
	})

	offer, err := c.FindByKeyword(context.Background(), "phone case", "42")
	if err != nil {
		t.Fatalf("FindByKeyword() error = %v", err)
	}
	if offer != nil {
		t.Errorf("offer = %+v, want nil for no exact match", offer)
	}
}

func TestSearchGraphQLErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": null, "errors": [{"message": "invalid signature"}]}`))
	})

	_, err := c.Search(context.Background(), Filter{Keyword: "x"})
	if err == nil || !strings.Contains(err.Error(), "invalid signature") {
		t.Errorf("error = %v, want graphql error", err)
	}
}

func TestSearchHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Search(context.Background(), Filter{Keyword: "x"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestSearchNotConfigured(t *testing.T) {
	c := NewClient("", "", "", zerolog.Nop())
	if _, err := c.Search(context.Background(), Filter{Keyword: "x"}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestMatchItem(t *testing.T) {
	offers := []Offer{
		{ItemID: "1", ProductLink: "https://shopee.vn/product/9/123"},
		{ItemID: "", ProductLink: "https://shopee.vn/x-i.9.12"},
	}
	if got := MatchItem(offers, "12"); got != &offers[1] {
		t.Errorf("MatchItem() = %+v, want second offer", got)
	}
	if got := MatchItem(offers, "2"); got != nil {
		t.Errorf("MatchItem() matched a substring: %+v", got)
	}
	if got := MatchItem(offers, ""); got != nil {
		t.Errorf("MatchItem(\"\") = %+v", got)
	}
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(Filter{ShopID: "1 OR 1", Keyword: `ốp "lưng"`, Limit: 5})
	if strings.Contains(q, "shopId:") {
		t.Errorf("non-numeric shop id leaked into query: %s", q)
	}
	if !strings.Contains(q, `keyword: "ốp \"lưng\""`) || !strings.Contains(q, "limit: 5") {
		t.Errorf("query = %s", q)
	}
}
