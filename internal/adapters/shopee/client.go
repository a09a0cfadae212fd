// Package shopee reads product data from Shopee's unauthenticated internal API.
package shopee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

const (
	DefaultBaseURL   = "https://shopee.vn"
	DefaultImageBase = "https://down-vn.img.susercontent.com/file/"
)

// Signature is one client identity presented to the internal API.
type Signature struct {
	Name    string
	Headers map[string]string
}

// Signatures are tried in order for every endpoint. The API blocks naive
// clients, so a single identity is not enough.
var Signatures = []Signature{
	{
		Name: "desktop",
		Headers: map[string]string{
			"User-Agent":       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			"Accept":           "application/json",
			"X-API-SOURCE":     "pc",
			"X-Requested-With": "XMLHttpRequest",
		},
	},
	{
		Name: "mobile",
		Headers: map[string]string{
			"User-Agent":   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
			"Accept":       "application/json",
			"X-API-SOURCE": "rweb",
		},
	},
	{
		Name: "bot",
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			"Accept":     "application/json",
		},
	},
}

// Endpoints are path templates taking item id then shop id.
var Endpoints = []string{
	"/api/v4/item/get?itemid=%s&shopid=%s",
	"/api/v4/pdp/get_pc?item_id=%s&shop_id=%s",
	"/api/v2/item/get?itemid=%s&shopid=%s",
}

// Video is one entry of an item's video list.
type Video struct {
	URL          string
	ThumbnailURL string
	Duration     int // seconds
}

// Item is the normalized product returned by the internal API.
type Item struct {
	ItemID        string
	ShopID        string
	Name          string
	MainImage     string
	Images        []string
	VariantImages []domain.VariantImage
	Videos        []Video
	Method        string // endpoint and signature that produced the item
}

// Client queries the internal API through a page fetcher.
type Client struct {
	fetcher   ports.PageFetcher
	baseURL   string
	imageBase string
	logger    zerolog.Logger
}

// NewClient creates a new Client. Empty baseURL or imageBase use the defaults.
func NewClient(fetcher ports.PageFetcher, baseURL, imageBase string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if imageBase == "" {
		imageBase = DefaultImageBase
	}
	if !strings.HasSuffix(imageBase, "/") {
		imageBase += "/"
	}
	return &Client{
		fetcher:   fetcher,
		baseURL:   strings.TrimRight(baseURL, "/"),
		imageBase: imageBase,
		logger:    logger.With().Str("component", "shopee").Logger(),
	}
}

// GetItem walks every endpoint and signature until one returns a non-error
// payload with at least one image.
func (c *Client) GetItem(ctx context.Context, shopID, itemID string) (*Item, error) {
	if shopID == "" || itemID == "" {
		return nil, fmt.Errorf("shop and item id required: %w", domain.ErrProductNotFound)
	}

	var lastErr error
	for _, endpoint := range Endpoints {
		path := fmt.Sprintf(endpoint, url.QueryEscape(itemID), url.QueryEscape(shopID))
		for _, sig := range Signatures {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			item, err := c.attempt(ctx, path, sig)
			if err != nil {
				lastErr = err
				c.logger.Debug().Err(err).Str("endpoint", path).Str("signature", sig.Name).Msg("attempt failed")
				continue
			}
			item.ItemID, item.ShopID = itemID, shopID
			item.Method = fmt.Sprintf("%s %s", sig.Name, strings.SplitN(endpoint, "?", 2)[0])
			return item, nil
		}
	}
	return nil, fmt.Errorf("all internal api attempts failed: %w", lastErr)
}

func (c *Client) attempt(ctx context.Context, path string, sig Signature) (*Item, error) {
	headers := make(map[string]string, len(sig.Headers)+1)
	for k, v := range sig.Headers {
		headers[k] = v
	}
	headers["Referer"] = c.baseURL + "/"

	page, err := c.fetcher.Fetch(ctx, c.baseURL+path, headers)
	if err != nil {
		return nil, err
	}

	raw, err := decodeEnvelope(page.Body)
	if err != nil {
		return nil, err
	}
	item := c.normalize(raw)
	if len(item.Images) == 0 {
		return nil, fmt.Errorf("payload has no images: %w", domain.ErrMalformedPayload)
	}
	return item, nil
}

type rawEnvelope struct {
	Error    json.RawMessage `json:"error"`
	ErrorMsg string          `json:"error_msg"`
	Data     json.RawMessage `json:"data"`
	Item     json.RawMessage `json:"item"`
}

type rawItem struct {
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	Image          string   `json:"image"`
	Images         []string `json:"images"`
	TierVariations []struct {
		Name    string   `json:"name"`
		Options []string `json:"options"`
		Images  []string `json:"images"`
	} `json:"tier_variations"`
	VideoInfoList []struct {
		VideoID       string `json:"video_id"`
		ThumbURL      string `json:"thumb_url"`
		Duration      int    `json:"duration"`
		DefaultFormat *struct {
			URL string `json:"url"`
		} `json:"default_format"`
		Formats []struct {
			URL string `json:"url"`
		} `json:"formats"`
	} `json:"video_info_list"`
}

var errNoItem = errors.New("no item in payload")

// decodeEnvelope accepts the shapes the endpoints return: {data:{item}},
// {data:{...item}} and {item}. A set error field fails the attempt.
func decodeEnvelope(body []byte) (*rawItem, error) {
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid json: %w", domain.ErrMalformedPayload)
	}
	if code := strings.TrimSpace(string(env.Error)); code != "" && code != "null" && code != "0" && code != `""` {
		return nil, fmt.Errorf("api error %s %s", code, env.ErrorMsg)
	}

	var candidates []json.RawMessage
	if len(env.Data) > 0 && string(env.Data) != "null" {
		var wrapped struct {
			Item json.RawMessage `json:"item"`
		}
		if err := json.Unmarshal(env.Data, &wrapped); err == nil && len(wrapped.Item) > 0 {
			candidates = append(candidates, wrapped.Item)
		}
		candidates = append(candidates, env.Data)
	}
	if len(env.Item) > 0 {
		candidates = append(candidates, env.Item)
	}

	for _, c := range candidates {
		var item rawItem
		if err := json.Unmarshal(c, &item); err != nil {
			continue
		}
		if item.Name != "" || item.Title != "" || item.Image != "" || len(item.Images) > 0 {
			return &item, nil
		}
	}
	return nil, errNoItem
}

func (c *Client) normalize(raw *rawItem) *Item {
	item := &Item{Name: raw.Name}
	if item.Name == "" {
		item.Name = raw.Title
	}

	seen := make(map[string]bool)
	add := func(hash string) string {
		u := c.ImageURL(hash)
		if u == "" || seen[u] {
			return u
		}
		seen[u] = true
		item.Images = append(item.Images, u)
		return u
	}

	if raw.Image != "" {
		item.MainImage = add(raw.Image)
	}
	for _, h := range raw.Images {
		add(h)
	}
	if item.MainImage == "" && len(item.Images) > 0 {
		item.MainImage = item.Images[0]
	}

	variantSeen := make(map[string]bool)
	for _, tier := range raw.TierVariations {
		for i, h := range tier.Images {
			u := c.ImageURL(h)
			if u == "" || variantSeen[u] {
				continue
			}
			variantSeen[u] = true
			v := domain.VariantImage{Name: tier.Name, Image: u}
			if i < len(tier.Options) {
				v.Option = tier.Options[i]
			}
			item.VariantImages = append(item.VariantImages, v)
		}
	}

	for _, v := range raw.VideoInfoList {
		video := Video{ThumbnailURL: c.ImageURL(v.ThumbURL), Duration: v.Duration}
		if v.DefaultFormat != nil {
			video.URL = v.DefaultFormat.URL
		}
		for i := len(v.Formats) - 1; i >= 0 && video.URL == ""; i-- {
			video.URL = v.Formats[i].URL
		}
		if video.URL != "" {
			item.Videos = append(item.Videos, video)
		}
	}
	return item
}

// ImageURL resolves an image hash against the image CDN. Absolute URLs are
// returned as-is.
func (c *Client) ImageURL(hash string) string {
	hash = strings.TrimSpace(hash)
	switch {
	case hash == "":
		return ""
	case strings.HasPrefix(hash, "http://"), strings.HasPrefix(hash, "https://"):
		return hash
	case strings.HasPrefix(hash, "//"):
		return "https:" + hash
	}
	return c.imageBase + hash
}
