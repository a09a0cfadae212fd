package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"videominer/internal/core/ports"
)

// DefaultMaxImages caps the number of images returned for one page.
const DefaultMaxImages = 20

// PageImages holds what the scraper found on a product page.
type PageImages struct {
	Title  string
	Images []string
}

// PageVideo holds the video metadata found on a page.
type PageVideo struct {
	VideoURL     string
	ThumbnailURL string
	Title        string
	Description  string
	Author       string
	Duration     string
}

// Scraper extracts images and videos from server-rendered HTML.
type Scraper struct {
	fetcher   ports.PageFetcher
	maxImages int
	logger    zerolog.Logger
}

// NewScraper creates a new Scraper. maxImages <= 0 uses DefaultMaxImages.
func NewScraper(fetcher ports.PageFetcher, maxImages int, logger zerolog.Logger) *Scraper {
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	return &Scraper{
		fetcher:   fetcher,
		maxImages: maxImages,
		logger:    logger.With().Str("component", "scraper").Logger(),
	}
}

// ScrapeImages fetches pageURL and extracts product images.
func (s *Scraper) ScrapeImages(ctx context.Context, pageURL string) (*PageImages, error) {
	page, err := s.fetcher.Fetch(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	result, err := ParseImages(page.URL, page.Body, s.maxImages)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("url", page.URL).Int("images", len(result.Images)).Msg("scraped images")
	return result, nil
}

// ScrapeVideo fetches pageURL and extracts the primary video.
func (s *Scraper) ScrapeVideo(ctx context.Context, pageURL string) (*PageVideo, error) {
	page, err := s.fetcher.Fetch(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	return ParseVideo(page.URL, page.Body)
}

// ParseImages extracts images from JSON-LD, Open Graph and raw <img> tags, in
// that order of preference. Rejected URLs are skipped and the list is capped at max.
func ParseImages(pageURL string, body []byte, max int) (*PageImages, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	if max <= 0 {
		max = DefaultMaxImages
	}

	result := &PageImages{Title: pageTitle(doc)}
	seen := make(map[string]bool)
	add := func(raw string) {
		if len(result.Images) >= max {
			return
		}
		abs := ResolveURL(pageURL, DecodeEscapes(raw))
		if !AcceptImageURL(abs) {
			return
		}
		cleaned := CleanImageURL(abs)
		if seen[cleaned] {
			return
		}
		seen[cleaned] = true
		result.Images = append(result.Images, cleaned)
	}

	for _, node := range jsonLDNodes(doc) {
		for _, img := range imageValues(node["image"]) {
			add(img)
		}
		if result.Title == "" {
			if name, ok := node["name"].(string); ok {
				result.Title = strings.TrimSpace(name)
			}
		}
	}

	for _, prop := range []string{"og:image", "og:image:secure_url", "og:image:url", "twitter:image"} {
		for _, content := range metaContents(doc, prop) {
			add(content)
		}
	}

	if len(result.Images) == 0 {
		doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
			for _, attr := range []string{"data-src", "data-original", "src"} {
				if v, ok := sel.Attr(attr); ok && v != "" {
					add(v)
					return
				}
			}
		})
	}

	return result, nil
}

// ParseVideo extracts the primary video from Open Graph, Twitter player tags,
// <video>/<source> elements, JSON-LD VideoObject nodes and finally raw .mp4 URLs.
func ParseVideo(pageURL string, body []byte) (*PageVideo, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	video := &PageVideo{
		Title:       pageTitle(doc),
		Description: firstNonEmpty(metaContents(doc, "og:description")...),
	}

	for _, node := range jsonLDNodes(doc) {
		if !isType(node, "VideoObject") {
			continue
		}
		if video.VideoURL == "" {
			video.VideoURL = stringValue(node["contentUrl"])
		}
		if video.ThumbnailURL == "" {
			video.ThumbnailURL = firstNonEmpty(imageValues(node["thumbnailUrl"])...)
		}
		if video.Title == "" {
			video.Title = stringValue(node["name"])
		}
		if video.Description == "" {
			video.Description = stringValue(node["description"])
		}
		if video.Duration == "" {
			video.Duration = stringValue(node["duration"])
		}
		if video.Author == "" {
			video.Author = authorName(node["author"])
		}
	}

	if video.VideoURL == "" {
		video.VideoURL = firstNonEmpty(append(append(append(
			metaContents(doc, "og:video:secure_url"),
			metaContents(doc, "og:video:url")...),
			metaContents(doc, "og:video")...),
			metaContents(doc, "twitter:player:stream")...)...)
	}
	if video.VideoURL == "" {
		doc.Find("video[src], video source[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			src, _ := sel.Attr("src")
			video.VideoURL = src
			return src == ""
		})
	}
	if video.VideoURL == "" {
		video.VideoURL = ExtractField(string(body), VideoURLPatterns)
	}
	if video.ThumbnailURL == "" {
		video.ThumbnailURL = firstNonEmpty(metaContents(doc, "og:image")...)
	}
	if video.ThumbnailURL == "" {
		if poster, ok := doc.Find("video[poster]").First().Attr("poster"); ok {
			video.ThumbnailURL = poster
		}
	}
	if video.Author == "" {
		video.Author = firstNonEmpty(metaContents(doc, "author")...)
	}

	video.VideoURL = ResolveURL(pageURL, DecodeEscapes(video.VideoURL))
	video.ThumbnailURL = ResolveURL(pageURL, DecodeEscapes(video.ThumbnailURL))
	video.Title = DecodeEscapes(video.Title)
	video.Description = DecodeEscapes(video.Description)
	video.Author = DecodeEscapes(video.Author)
	return video, nil
}

// PageTitle returns og:title or <title> of an HTML document.
func PageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return pageTitle(doc)
}

func pageTitle(doc *goquery.Document) string {
	if title := firstNonEmpty(metaContents(doc, "og:title")...); title != "" {
		return DecodeEscapes(title)
	}
	return DecodeEscapes(strings.TrimSpace(doc.Find("title").First().Text()))
}

// metaContents returns the content of every meta tag whose property or name
// equals key. Attribute order in the markup does not matter.
func metaContents(doc *goquery.Document, key string) []string {
	var out []string
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		prop, _ := sel.Attr("property")
		name, _ := sel.Attr("name")
		if !strings.EqualFold(prop, key) && !strings.EqualFold(name, key) {
			return
		}
		if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
			out = append(out, strings.TrimSpace(content))
		}
	})
	return out
}

// jsonLDNodes flattens every JSON-LD block, including @graph arrays.
func jsonLDNodes(doc *goquery.Document) []map[string]any {
	var nodes []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(strings.TrimSpace(sel.Text())), &raw); err != nil {
			return
		}
		nodes = append(nodes, flattenLD(raw)...)
	})
	return nodes
}

func flattenLD(raw any) []map[string]any {
	switch v := raw.(type) {
	case []any:
		var out []map[string]any
		for _, item := range v {
			out = append(out, flattenLD(item)...)
		}
		return out
	case map[string]any:
		out := []map[string]any{v}
		if graph, ok := v["@graph"]; ok {
			out = append(out, flattenLD(graph)...)
		}
		return out
	}
	return nil
}

func isType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// imageValues accepts a string, a list of strings, an ImageObject or a list of
// ImageObjects.
func imageValues(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, imageValues(item)...)
		}
		return out
	case map[string]any:
		if u := stringValue(v["url"]); u != "" {
			return []string{u}
		}
		if u := stringValue(v["contentUrl"]); u != "" {
			return []string{u}
		}
	}
	return nil
}

func authorName(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		return stringValue(v["name"])
	case []any:
		if len(v) > 0 {
			return authorName(v[0])
		}
	}
	return ""
}

func stringValue(raw any) string {
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
