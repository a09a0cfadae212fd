package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Pattern lists are tried in order; the first non-empty capture wins. They work
// on raw or rendered HTML including inline JSON state blobs.
var (
	VideoURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"(?:downloadable_url|download_url|video_url|videoUrl|contentUrl)"\s*:\s*"(https?:[^"]+)"`),
		regexp.MustCompile(`(https?:(?:\\?/){2}videos\.openai\.com[^"'\s<>]+)`),
		regexp.MustCompile(`<video[^>]+src=["']([^"']+)["']`),
		regexp.MustCompile(`<source[^>]+src=["']([^"']+\.mp4[^"']*)["']`),
		metaPattern("og:video:secure_url"),
		metaPattern("og:video:url"),
		metaPattern("og:video"),
		metaPatternReversed("og:video"),
		regexp.MustCompile(`(https?:(?:\\?/){2}[^"'\s<>]+?\.mp4[^"'\s<>]*)`),
	}

	PromptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"prompt"\s*:\s*"((?:[^"\\]|\\.)+)"`),
		regexp.MustCompile(`"caption"\s*:\s*"((?:[^"\\]|\\.)+)"`),
		metaPattern("og:description"),
		metaPatternReversed("og:description"),
		metaPattern("description"),
		metaPatternReversed("description"),
	}

	TitlePatterns = []*regexp.Regexp{
		metaPattern("og:title"),
		metaPatternReversed("og:title"),
		regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)+)"`),
		regexp.MustCompile(`(?is)<title[^>]*>([^<]+)</title>`),
	}

	ThumbnailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"(?:thumbnail_url|thumbnailUrl|preview_image_url|poster_url|cover_url)"\s*:\s*"(https?:[^"]+)"`),
		regexp.MustCompile(`<video[^>]+poster=["']([^"']+)["']`),
		metaPattern("og:image"),
		metaPatternReversed("og:image"),
	}

	CreatorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"(?:username|creator_name|author_name|display_name)"\s*:\s*"((?:[^"\\]|\\.)+)"`),
		regexp.MustCompile(`"author"\s*:\s*\{[^{}]*?"name"\s*:\s*"((?:[^"\\]|\\.)+)"`),
		metaPattern("author"),
		metaPatternReversed("author"),
	}
)

// metaPattern matches <meta property|name="key" content="...">.
func metaPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)<meta[^>]+(?:property|name)=["']` + regexp.QuoteMeta(key) + `["'][^>]*?content=["']([^"']*)["']`)
}

// metaPatternReversed matches <meta content="..." property|name="key">.
func metaPatternReversed(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)<meta[^>]+content=["']([^"']*)["'][^>]*?(?:property|name)=["']` + regexp.QuoteMeta(key) + `["']`)
}

var jsonInString = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\/`, `/`)

// ExtractField returns the first non-empty decoded capture of patterns in text.
// JSON embedded inside a JavaScript string literal is matched too, so each
// pattern is tried against the raw text and against it with one escape level removed.
func ExtractField(text string, patterns []*regexp.Regexp) string {
	variants := []string{text}
	if strings.Contains(text, `\"`) {
		variants = append(variants, jsonInString.Replace(text))
	}
	for _, re := range patterns {
		for _, variant := range variants {
			for _, m := range re.FindAllStringSubmatch(variant, -1) {
				if len(m) < 2 {
					continue
				}
				if v := strings.TrimSpace(DecodeEscapes(m[1])); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

var unicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

// DecodeEscapes undoes JSON string escapes (/, \/, \") and HTML entities.
func DecodeEscapes(s string) string {
	if s == "" {
		return s
	}
	if strings.Contains(s, `\`) {
		s = strings.ReplaceAll(s, `\\u`, `\u`)
		if unquoted, err := strconv.Unquote(`"` + s + `"`); err == nil {
			s = unquoted
		} else {
			s = unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
				code, err := strconv.ParseUint(m[2:], 16, 32)
				if err != nil {
					return m
				}
				return string(rune(code))
			})
			s = strings.NewReplacer(`\/`, `/`, `\"`, `"`, `\n`, "\n", `\t`, "\t", `\\`, `\`).Replace(s)
		}
	}
	return html.UnescapeString(s)
}
