package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies the platform a VideoRecord was mined from.
type Source string

const (
	SourceShopee     Source = "shopee"
	SourceAliExpress Source = "aliexpress"
	SourcePinterest  Source = "pinterest"
	SourceTikTok     Source = "tiktok"
	SourceInstagram  Source = "instagram"
	SourceYouTube    Source = "youtube"
	SourceFacebook   Source = "facebook"
)

// AllSources lists every source in invocation order. Mining results keep this
// order when records from several sources share a video URL.
func AllSources() []Source {
	return []Source{
		SourceShopee,
		SourceAliExpress,
		SourcePinterest,
		SourceTikTok,
		SourceInstagram,
		SourceYouTube,
		SourceFacebook,
	}
}

// ParseSource returns the Source named by s (case-insensitive).
func ParseSource(s string) (Source, bool) {
	candidate := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, src := range AllSources() {
		if src == candidate {
			return src, true
		}
	}
	return "", false
}

// SourceSet is the set of sources enabled for one mining request.
type SourceSet map[Source]bool

// NewSourceSet builds a set from the given sources.
func NewSourceSet(sources ...Source) SourceSet {
	set := make(SourceSet, len(sources))
	for _, s := range sources {
		set[s] = true
	}
	return set
}

// Ordered returns the enabled sources in AllSources order.
func (s SourceSet) Ordered() []Source {
	var out []Source
	for _, src := range AllSources() {
		if s[src] {
			out = append(out, src)
		}
	}
	return out
}

// ProductIdentity is the canonical description of the product behind an input URL.
type ProductIdentity struct {
	CanonicalURL string   `json:"canonical_url"`
	ItemID       string   `json:"item_id,omitempty"`
	ShopID       string   `json:"shop_id,omitempty"`
	Name         string   `json:"name"`
	Keywords     []string `json:"keywords"`
}

// Query joins the keyword set into a search query.
func (p ProductIdentity) Query() string {
	return strings.Join(p.Keywords, " ")
}

// HasIDs reports whether both shop and item ids are known.
func (p ProductIdentity) HasIDs() bool {
	return p.ItemID != "" && p.ShopID != ""
}

// VideoRecord is one normalized result from any source.
type VideoRecord struct {
	ID           string `json:"id"`
	Source       Source `json:"source"`
	VideoURL     string `json:"videoUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Title        string `json:"title"`
	Duration     string `json:"duration,omitempty"`
	Author       string `json:"author,omitempty"`
	SourceURL    string `json:"sourceUrl,omitempty"`
	IsSearchLink bool   `json:"isSearchLink"`
}

// NewVideoRecord creates a record whose ID is derived from the video URL, so the
// same URL always yields the same ID.
func NewVideoRecord(source Source, videoURL, title string) VideoRecord {
	return VideoRecord{
		ID:       RecordID(videoURL),
		Source:   source,
		VideoURL: videoURL,
		Title:    title,
	}
}

// RecordID returns the stable identifier for a video URL.
func RecordID(videoURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(videoURL)).String()
}

// MiningResult is the aggregate outcome of one mining request.
type MiningResult struct {
	Success     bool          `json:"success"`
	ProductName string        `json:"productName"`
	Keywords    []string      `json:"keywords"`
	Videos      []VideoRecord `json:"videos"`
	Errors      []string      `json:"errors,omitempty"`
}

// ExtractedVideo is the result of a single-URL video extraction.
type ExtractedVideo struct {
	Success      bool   `json:"success"`
	VideoURL     string `json:"videoUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Author       string `json:"author,omitempty"`
	Duration     string `json:"duration,omitempty"`
	SourceURL    string `json:"sourceUrl"`
	Method       string `json:"method,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SoraVideoData is the result of extracting one Sora share page.
type SoraVideoData struct {
	Success      bool   `json:"success"`
	VideoURL     string `json:"videoUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	Title        string `json:"title,omitempty"`
	Creator      string `json:"creator,omitempty"`
	SourceURL    string `json:"sourceUrl"`
	Method       string `json:"method,omitempty"`
	Error        string `json:"error,omitempty"`
}

// VariantImage is an image attached to one product variant option.
type VariantImage struct {
	Name   string `json:"name"`
	Option string `json:"option"`
	Image  string `json:"image"`
}

// ShopeeProduct is the result of a single-URL Shopee product extraction.
type ShopeeProduct struct {
	Success       bool           `json:"success"`
	ItemID        string         `json:"itemId,omitempty"`
	ShopID        string         `json:"shopId,omitempty"`
	Name          string         `json:"name,omitempty"`
	MainImage     string         `json:"mainImage,omitempty"`
	Images        []string       `json:"images"`
	VariantImages []VariantImage `json:"variantImages,omitempty"`
	Method        string         `json:"method,omitempty"`
	SourceURL     string         `json:"sourceUrl"`
	Error         string         `json:"error,omitempty"`
}

// Job represents a single media download job run from the CLI.
type Job struct {
	ID        string    `json:"job_id"`
	URL       string    `json:"url"`
	Source    Source    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JobResult holds the outcome of a completed download job.
type JobResult struct {
	Job          Job
	MetadataPath string
	VideoPath    string
	Success      bool
	ErrorMessage string
	CompletedAt  time.Time
}
