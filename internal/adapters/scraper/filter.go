package scraper

import (
	"net/url"
	"regexp"
	"strings"
)

// rejectMarkers are substrings of image URLs that always point at page chrome.
var rejectMarkers = []string{
	"logo",
	"favicon",
	"sprite",
	"placeholder",
	"doubleclick",
	"facebook.com/tr",
	"googletagmanager",
	"twitter",
	"whatsapp",
	"appstore",
	"googleplay",
	"1x1",
}

// rejectTokens only match as whole words so "silicone" does not trip "icon".
var rejectTokens = regexp.MustCompile(`(^|[^a-z])(icons?|pixel|tracking|beacon|badges?|avatars?|emoji|spacer|blank|loading|social|share|qrcode|ads)([^a-z]|$)`)

var rejectExtensions = []string{".svg", ".gif", ".ico"}

// AcceptImageURL reports whether u looks like a real content image.
func AcceptImageURL(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" {
		return false
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}

	parsed, err := url.Parse(lower)
	if err != nil {
		return false
	}
	for _, ext := range rejectExtensions {
		if strings.HasSuffix(parsed.Path, ext) {
			return false
		}
	}
	for _, marker := range rejectMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return !rejectTokens.MatchString(parsed.Host + parsed.Path)
}

var sizeSuffix = regexp.MustCompile(`(?i)(_thumb|_thumbnail|_tn|_small|_medium|_\d{2,4}x\d{2,4}(q\d+)?)(\.[a-z0-9]{2,5})?$`)

// CleanImageURL strips query strings, fragments and thumbnail-size suffixes so
// the URL favors the full-resolution original.
func CleanImageURL(u string) string {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || parsed.Host == "" {
		return strings.TrimSpace(u)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = sizeSuffix.ReplaceAllString(parsed.Path, "$3")
	parsed.RawPath = ""
	return parsed.String()
}

// ResolveURL makes ref absolute against base. Protocol-relative refs get https.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}
