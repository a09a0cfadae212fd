// Package identity derives canonical product identifiers and search keywords
// from arbitrary product links.
package identity

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"videominer/internal/adapters/scraper"
	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

// MaxQueryLength bounds the joined keyword query. Search and affiliate
// endpoints reject or truncate long queries.
const MaxQueryLength = 50

var (
	slugPattern     = regexp.MustCompile(`/([^/]+)-i\.(\d+)\.(\d+)`)
	dottedIDPattern = regexp.MustCompile(`i\.(\d+)\.(\d+)`)
	pathIDPattern   = regexp.MustCompile(`^/([^/]+)/(\d+)/(\d+)/?$`)
	bracketTag      = regexp.MustCompile(`[\[【(（{][^\]】)）}]*[\]】)）}]`)
	fileExtension   = regexp.MustCompile(`(?i)\.(html?|php|aspx?)$`)
)

// Extractor implements ports.IdentityExtractor.
type Extractor struct {
	fetcher ports.PageFetcher
	logger  zerolog.Logger
}

// NewExtractor creates a new Extractor.
func NewExtractor(fetcher ports.PageFetcher, logger zerolog.Logger) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "identity").Logger(),
	}
}

// Extract resolves rawURL and derives identifiers and keywords from it.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (domain.ProductIdentity, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return domain.ProductIdentity{}, fmt.Errorf("invalid url %q: %w", rawURL, domain.ErrProductNotFound)
	}

	canonical := rawURL
	var pageTitle string
	page, err := e.fetcher.Fetch(ctx, rawURL, nil)
	if err != nil {
		e.logger.Warn().Err(err).Str("url", rawURL).Msg("redirect resolution failed, using input url")
	} else {
		canonical = page.URL
		pageTitle = scraper.PageTitle(page.Body)
	}

	identity, err := FromURL(canonical, pageTitle)
	if err != nil {
		return domain.ProductIdentity{}, err
	}

	e.logger.Debug().
		Str("url", identity.CanonicalURL).
		Str("item_id", identity.ItemID).
		Str("shop_id", identity.ShopID).
		Strs("keywords", identity.Keywords).
		Msg("identity extracted")
	return identity, nil
}

// FromURL derives an identity from an already-resolved URL. pageTitle is used
// as a name fallback when the path carries no readable slug.
func FromURL(canonicalURL, pageTitle string) (domain.ProductIdentity, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return domain.ProductIdentity{}, fmt.Errorf("invalid url %q: %w", canonicalURL, domain.ErrProductNotFound)
	}

	identity := domain.ProductIdentity{CanonicalURL: canonicalURL}
	identity.ShopID, identity.ItemID = extractIDs(u.Path)

	identity.Name = nameFromSlug(u.Path)
	if identity.Name == "" {
		identity.Name = cleanTitle(pageTitle, u.Host)
	}
	if identity.Name == "" {
		identity.Name = nameFromLastSegment(u.Path)
	}

	identity.Keywords = Keywords(identity.Name)
	if len(identity.Keywords) == 0 {
		return domain.ProductIdentity{}, fmt.Errorf("no keywords in %q: %w", canonicalURL, domain.ErrProductNotFound)
	}
	return identity, nil
}

// extractIDs tries the dotted form first, then the path form. The first
// successful match wins.
func extractIDs(path string) (shopID, itemID string) {
	if m := dottedIDPattern.FindStringSubmatch(path); m != nil {
		return m[1], m[2]
	}
	if m := pathIDPattern.FindStringSubmatch(path); m != nil {
		return m[2], m[3]
	}
	return "", ""
}

func nameFromSlug(path string) string {
	m := slugPattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return humanize(m[1])
}

// genericSegments are path words that never name a product.
var genericSegments = map[string]bool{
	"product": true, "products": true, "item": true, "items": true,
	"p": true, "dp": true, "shop": true, "detail": true, "goods": true,
}

func nameFromLastSegment(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := fileExtension.ReplaceAllString(segments[i], "")
		if genericSegments[strings.ToLower(seg)] {
			continue
		}
		if name := humanize(seg); name != "" && !isNumeric(strings.ReplaceAll(name, " ", "")) {
			return name
		}
	}
	return ""
}

// humanize turns a URL slug into words.
func humanize(slug string) string {
	if decoded, err := url.PathUnescape(slug); err == nil {
		slug = decoded
	}
	slug = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '+', '.', '~':
			return ' '
		}
		return r
	}, slug)
	return strings.Join(strings.Fields(slug), " ")
}

// cleanTitle drops a trailing "| Site" or "- Site" suffix from a page title.
func cleanTitle(title, host string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	if i := strings.Index(title, "|"); i > 0 {
		title = strings.TrimSpace(title[:i])
	}
	site := siteName(host)
	if i := strings.LastIndex(title, " - "); i > 0 && site != "" &&
		strings.Contains(strings.ToLower(title[i:]), site) {
		title = strings.TrimSpace(title[:i])
	}
	return title
}

func siteName(host string) string {
	parts := strings.Split(strings.ToLower(host), ".")
	for _, p := range parts {
		switch p {
		case "www", "m", "vn", "com", "co", "th", "id", "sg", "my", "ph", "tw", "br":
			continue
		}
		return p
	}
	return ""
}

// Keywords splits a product name into deduplicated search terms whose joined
// length stays within MaxQueryLength.
func Keywords(name string) []string {
	name = bracketTag.ReplaceAllString(name, " ")
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			return r
		}
		return ' '
	}, name)

	var (
		keywords []string
		seen     = make(map[string]bool)
		length   int
	)
	for _, word := range strings.Fields(name) {
		if utf8.RuneCountInString(word) < 2 && !isNumeric(word) {
			continue
		}
		key := strings.ToLower(word)
		if seen[key] {
			continue
		}
		added := utf8.RuneCountInString(word)
		if len(keywords) > 0 {
			added++
		}
		if length+added > MaxQueryLength {
			if len(keywords) > 0 {
				break
			}
			// Unspaced scripts arrive as one long word; keep its prefix.
			word = string([]rune(word)[:MaxQueryLength])
			added = MaxQueryLength
		}
		seen[key] = true
		keywords = append(keywords, word)
		length += added
	}
	return keywords
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
