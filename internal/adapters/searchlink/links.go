package searchlink

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"videominer/internal/core/domain"
)

type platform struct {
	label string
	base  string
	param string
}

var platforms = map[domain.Source]platform{
	domain.SourceTikTok:     {"TikTok", "https://www.tiktok.com/search/video", "q"},
	domain.SourceInstagram:  {"Instagram", "https://www.instagram.com/explore/search/keyword/", "q"},
	domain.SourceYouTube:    {"YouTube", "https://www.youtube.com/results", "search_query"},
	domain.SourceAliExpress: {"AliExpress", "https://www.aliexpress.com/w/wholesale.html", "SearchText"},
	domain.SourcePinterest:  {"Pinterest", "https://www.pinterest.com/search/videos/", "q"},
	domain.SourceFacebook:   {"Facebook", "https://www.facebook.com/watch/search/", "q"},
	domain.SourceShopee:     {"Shopee", "https://shopee.vn/search", "keyword"},
}

// Supports reports whether a search link can be built for source.
func Supports(source domain.Source) bool {
	_, ok := platforms[source]
	return ok
}

// Build returns the platform search URL for keyword.
func Build(source domain.Source, keyword string) (string, error) {
	p, ok := platforms[source]
	if !ok {
		return "", fmt.Errorf("no search link for source %q", source)
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", fmt.Errorf("empty keyword for %s search link", p.label)
	}
	q := url.Values{}
	q.Set(p.param, keyword)
	return p.base + "?" + q.Encode(), nil
}

// KeywordFromLink recovers the keyword from a link produced by Build.
func KeywordFromLink(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	for _, p := range platforms {
		base, _ := url.Parse(p.base)
		if u.Host == base.Host && u.Path == base.Path {
			kw := u.Query().Get(p.param)
			return kw, kw != ""
		}
	}
	return "", false
}

// Record builds a search-link VideoRecord for source.
func Record(source domain.Source, identity domain.ProductIdentity) (domain.VideoRecord, error) {
	keyword := identity.Query()
	link, err := Build(source, keyword)
	if err != nil {
		return domain.VideoRecord{}, err
	}
	rec := domain.NewVideoRecord(source, link, fmt.Sprintf("Search %s: %s", platforms[source].label, keyword))
	rec.SourceURL = identity.CanonicalURL
	rec.IsSearchLink = true
	return rec, nil
}

// Adapter implements ports.Adapter for sources without a scraping path.
type Adapter struct {
	source domain.Source
}

// NewAdapter creates a search-link adapter for source.
func NewAdapter(source domain.Source) *Adapter {
	return &Adapter{source: source}
}

func (a *Adapter) Source() domain.Source { return a.source }

// Mine returns a single search-link record built from the identity keywords.
func (a *Adapter) Mine(ctx context.Context, identity domain.ProductIdentity) ([]domain.VideoRecord, error) {
	rec, err := Record(a.source, identity)
	if err != nil {
		return nil, err
	}
	return []domain.VideoRecord{rec}, nil
}
