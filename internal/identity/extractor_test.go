package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

type fakeFetcher struct {
	pages map[string]*ports.Page
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string, headers map[string]string) (*ports.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.pages[pageURL]; ok {
		return p, nil
	}
	return &ports.Page{URL: pageURL, StatusCode: 200}, nil
}

func TestExtractResolvesRedirects(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*ports.Page{
		"https://s.shopee.vn/abc": {URL: "https://shopee.vn/Tai-Nghe-Bluetooth-Pro-i.123456.987654321?sp_atk=x"},
	}}
	e := NewExtractor(f, zerolog.Nop())

	id, err := e.Extract(context.Background(), "https://s.shopee.vn/abc")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if id.CanonicalURL != "https://shopee.vn/Tai-Nghe-Bluetooth-Pro-i.123456.987654321?sp_atk=x" {
		t.Errorf("CanonicalURL = %q", id.CanonicalURL)
	}
	if id.ShopID != "123456" || id.ItemID != "987654321" {
		t.Errorf("ids = shop %q item %q", id.ShopID, id.ItemID)
	}
	if id.Name != "Tai Nghe Bluetooth Pro" {
		t.Errorf("Name = %q", id.Name)
	}
	if strings.Join(id.Keywords, " ") != "Tai Nghe Bluetooth Pro" {
		t.Errorf("Keywords = %v", id.Keywords)
	}
}

func TestExtractFetchFailureFallsBackToInput(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	e := NewExtractor(f, zerolog.Nop())

	id, err := e.Extract(context.Background(), "https://shopee.vn/product/111/222")
	if err == nil {
		t.Fatalf("expected failure: path has ids but no readable name, got %+v", id)
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("error = %v, want ErrProductNotFound", err)
	}

	id, err = e.Extract(context.Background(), "https://shopee.vn/Ao-Thun-i.5.6")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if id.CanonicalURL != "https://shopee.vn/Ao-Thun-i.5.6" || id.ItemID != "6" {
		t.Errorf("identity = %+v", id)
	}
}

func TestExtractRejectsInvalidURL(t *testing.T) {
	f := &fakeFetcher{}
	e := NewExtractor(f, zerolog.Nop())

	for _, raw := range []string{"", "not a url", "ftp://example.com/x", "/relative"} {
		if _, err := e.Extract(context.Background(), raw); !errors.Is(err, domain.ErrProductNotFound) {
			t.Errorf("Extract(%q) error = %v, want ErrProductNotFound", raw, err)
		}
	}
	if f.calls != 0 {
		t.Errorf("fetcher called %d times for invalid input", f.calls)
	}
}

func TestFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		title    string
		wantShop string
		wantItem string
		wantName string
	}{
		{
			name:     "slug with ids",
			url:      "https://shopee.vn/%C3%81o-Kho%C3%A1c-N%E1%BB%89-i.88.99",
			wantShop: "88", wantItem: "99", wantName: "Áo Khoác Nỉ",
		},
		{
			name:     "seller shop item path uses title",
			url:      "https://shopee.co.th/product/123/456",
			title:    "Wireless Mouse | Shopee Thailand",
			wantShop: "123", wantItem: "456", wantName: "Wireless Mouse",
		},
		{
			name:     "no ids falls back to last segment",
			url:      "https://www.aliexpress.com/item/usb-c-charging-cable.html",
			wantName: "usb c charging cable",
		},
		{
			name:     "title site suffix stripped",
			url:      "https://www.aliexpress.com/item/1005006.html",
			title:    "Mini Projector 4K - AliExpress",
			wantName: "Mini Projector 4K",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := FromURL(tt.url, tt.title)
			if err != nil {
				t.Fatalf("FromURL() error = %v", err)
			}
			if id.ShopID != tt.wantShop || id.ItemID != tt.wantItem {
				t.Errorf("ids = %q/%q, want %q/%q", id.ShopID, id.ItemID, tt.wantShop, tt.wantItem)
			}
			if id.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", id.Name, tt.wantName)
			}
			if len(id.Keywords) == 0 {
				t.Error("Keywords empty on success")
			}
		})
	}
}

func TestFromURLNoProduct(t *testing.T) {
	_, err := FromURL("https://shopee.vn/", "")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("error = %v, want ErrProductNotFound", err)
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("[HOT] Ốp lưng iPhone 15 Pro - ốp LƯNG silicon (chính hãng)")
	want := []string{"Ốp", "lưng", "iPhone", "15", "Pro", "silicon"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Keywords() = %v, want %v", got, want)
	}
}

func TestKeywordsCapped(t *testing.T) {
	long := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta iota kappa lambda ", 3)
	got := Keywords(long)
	if n := utf8.RuneCountInString(strings.Join(got, " ")); n > MaxQueryLength {
		t.Errorf("joined keywords length = %d, want <= %d", n, MaxQueryLength)
	}
	if len(got) == 0 {
		t.Fatal("Keywords() empty")
	}
	if got[0] != "alpha" {
		t.Errorf("Keywords()[0] = %q", got[0])
	}
}

func TestKeywordsTruncatesSingleLongWord(t *testing.T) {
	word := strings.Repeat("ก", 40) + strings.Repeat("ข", 26)
	got := Keywords(word)
	if len(got) != 1 {
		t.Fatalf("Keywords() = %v, want one truncated word", got)
	}
	if n := utf8.RuneCountInString(got[0]); n != MaxQueryLength {
		t.Errorf("keyword length = %d, want %d", n, MaxQueryLength)
	}
	if !strings.HasPrefix(word, got[0]) {
		t.Errorf("keyword %q is not a prefix of the name", got[0])
	}
}

func TestFromURLUnspacedSlug(t *testing.T) {
	slug := strings.Repeat("ก", 40) + strings.Repeat("ข", 26)
	identity, err := FromURL("https://shopee.co.th/"+slug+"-i.123.456", "")
	if err != nil {
		t.Fatalf("FromURL() error = %v", err)
	}
	if identity.ShopID != "123" || identity.ItemID != "456" {
		t.Errorf("ids = %q/%q", identity.ShopID, identity.ItemID)
	}
	if len(identity.Keywords) != 1 || utf8.RuneCountInString(identity.Keywords[0]) != MaxQueryLength {
		t.Errorf("Keywords = %v", identity.Keywords)
	}
}
