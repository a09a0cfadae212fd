package service

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"videominer/internal/adapters/affiliate"
	"videominer/internal/adapters/firecrawl"
	"videominer/internal/adapters/scraper"
	"videominer/internal/adapters/shopee"
	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

// Step names double as the Method reported on extraction results.
const (
	StepInternalAPI      = "internal_api"
	StepAffiliateShop    = "affiliate_shop"
	StepAffiliateKeyword = "affiliate_keyword"
	StepPageScrape       = "page_scrape"
	StepRenderedScrape   = "rendered_scrape"
	StepYtDlp            = "yt_dlp"
	StepDirectMedia      = "direct_media"
)

// ItemSource looks up a product on the Shopee internal API.
type ItemSource interface {
	GetItem(ctx context.Context, shopID, itemID string) (*shopee.Item, error)
}

// OfferFinder looks up an exact product offer on the affiliate API.
type OfferFinder interface {
	FindByShop(ctx context.Context, shopID, itemID string) (*affiliate.Offer, error)
	FindByKeyword(ctx context.Context, keyword, itemID string) (*affiliate.Offer, error)
}

// PageScraper extracts media from server-rendered HTML.
type PageScraper interface {
	ScrapeImages(ctx context.Context, pageURL string) (*scraper.PageImages, error)
	ScrapeVideo(ctx context.Context, pageURL string) (*scraper.PageVideo, error)
}

// MediaResolver turns a page URL into a direct media URL.
type MediaResolver interface {
	GetVideoURL(ctx context.Context, pageURL string) (string, error)
}

// ExtractorDeps lists the collaborators of the single-URL extractors. Nil
// members drop their steps from every chain.
type ExtractorDeps struct {
	Identity   ports.IdentityExtractor
	Items      ItemSource
	Offers     OfferFinder
	Scraper    PageScraper
	Fetcher    ports.PageFetcher
	Renderer   ports.Renderer
	Resolver   MediaResolver
	RenderWait time.Duration
}

// Extractors runs the per-URL fallback chains.
type Extractors struct {
	deps    ExtractorDeps
	product *Chain[domain.ProductIdentity, domain.ShopeeProduct]
	video   *Chain[domain.ProductIdentity, domain.ExtractedVideo]
	sora    *Chain[string, domain.SoraVideoData]
	media   *Chain[string, domain.ExtractedVideo]
	logger  zerolog.Logger
}

// NewExtractors wires the chains in their fixed order.
func NewExtractors(deps ExtractorDeps, logger zerolog.Logger) *Extractors {
	if deps.RenderWait <= 0 {
		deps.RenderWait = firecrawl.DefaultWaitFor
	}
	e := &Extractors{
		deps:   deps,
		logger: logger.With().Str("component", "extractors").Logger(),
	}
	e.product = NewChain(e.logger.With().Str("chain", "shopee_product").Logger(),
		func(p domain.ShopeeProduct) bool { return p.MainImage == "" && len(p.Images) == 0 },
		e.productSteps()...)
	e.video = NewChain(e.logger.With().Str("chain", "shopee_video").Logger(),
		func(v domain.ExtractedVideo) bool { return v.VideoURL == "" },
		e.videoSteps()...)
	e.sora = NewChain(e.logger.With().Str("chain", "sora").Logger(),
		func(v domain.SoraVideoData) bool { return v.VideoURL == "" },
		e.soraSteps()...)
	e.media = NewChain(e.logger.With().Str("chain", "media").Logger(),
		func(v domain.ExtractedVideo) bool { return v.VideoURL == "" },
		e.mediaSteps()...)
	return e
}

// identify resolves the product behind rawURL. Failure is not fatal for the
// extractors: the page itself may still carry media.
func (e *Extractors) identify(ctx context.Context, rawURL string) (domain.ProductIdentity, error) {
	if e.deps.Identity == nil {
		return domain.ProductIdentity{CanonicalURL: rawURL}, nil
	}
	identity, err := e.deps.Identity.Extract(ctx, rawURL)
	if err != nil {
		e.logger.Debug().Err(err).Str("url", rawURL).Msg("identity unavailable, scraping page only")
		return domain.ProductIdentity{CanonicalURL: rawURL}, err
	}
	if identity.CanonicalURL == "" {
		identity.CanonicalURL = rawURL
	}
	return identity, nil
}

// ExtractShopeeProduct returns the product's images, trying the internal API,
// the affiliate API by shop then by keyword, and finally the page itself.
func (e *Extractors) ExtractShopeeProduct(ctx context.Context, rawURL string) domain.ShopeeProduct {
	identity, idErr := e.identify(ctx, rawURL)

	out, err := e.product.Run(ctx, identity)
	if err != nil {
		return domain.ShopeeProduct{
			Success:   false,
			ItemID:    identity.ItemID,
			ShopID:    identity.ShopID,
			Images:    []string{},
			SourceURL: rawURL,
			Error:     e.failure(ctx, err, idErr),
		}
	}
	product := out.Value
	product.Success = true
	product.Method = out.Step
	product.SourceURL = rawURL
	if product.ItemID == "" {
		product.ItemID = identity.ItemID
	}
	if product.ShopID == "" {
		product.ShopID = identity.ShopID
	}
	if product.Name == "" {
		product.Name = identity.Name
	}
	if product.Images == nil {
		product.Images = []string{}
	}
	e.logger.Info().Str("url", rawURL).Str("method", out.Step).Int("images", len(product.Images)).Msg("product extracted")
	return product
}

func (e *Extractors) productSteps() []Step[domain.ProductIdentity, domain.ShopeeProduct] {
	var steps []Step[domain.ProductIdentity, domain.ShopeeProduct]
	if e.deps.Items != nil {
		steps = append(steps, Step[domain.ProductIdentity, domain.ShopeeProduct]{
			Name: StepInternalAPI,
			Run: func(ctx context.Context, id domain.ProductIdentity) (domain.ShopeeProduct, error) {
				if !id.HasIDs() {
					return domain.ShopeeProduct{}, nil
				}
				item, err := e.deps.Items.GetItem(ctx, id.ShopID, id.ItemID)
				if err != nil {
					return domain.ShopeeProduct{}, err
				}
				return productFromItem(item), nil
			},
		})
	}
	if e.deps.Offers != nil {
		steps = append(steps,
			Step[domain.ProductIdentity, domain.ShopeeProduct]{
				Name: StepAffiliateShop,
				Run: func(ctx context.Context, id domain.ProductIdentity) (domain.ShopeeProduct, error) {
					if !id.HasIDs() {
						return domain.ShopeeProduct{}, nil
					}
					offer, err := e.deps.Offers.FindByShop(ctx, id.ShopID, id.ItemID)
					return productFromOffer(offer), err
				},
			},
			Step[domain.ProductIdentity, domain.ShopeeProduct]{
				Name: StepAffiliateKeyword,
				Run: func(ctx context.Context, id domain.ProductIdentity) (domain.ShopeeProduct, error) {
					if id.ItemID == "" || len(id.Keywords) == 0 {
						return domain.ShopeeProduct{}, nil
					}
					offer, err := e.deps.Offers.FindByKeyword(ctx, id.Query(), id.ItemID)
					return productFromOffer(offer), err
				},
			},
		)
	}
	if e.deps.Scraper != nil {
		steps = append(steps, Step[domain.ProductIdentity, domain.ShopeeProduct]{
			Name: StepPageScrape,
			Run: func(ctx context.Context, id domain.ProductIdentity) (domain.ShopeeProduct, error) {
				page, err := e.deps.Scraper.ScrapeImages(ctx, id.CanonicalURL)
				if err != nil || len(page.Images) == 0 {
					return domain.ShopeeProduct{}, err
				}
				return domain.ShopeeProduct{
					Name:      firstNonEmpty(page.Title, id.Name),
					MainImage: page.Images[0],
					Images:    page.Images,
				}, nil
			},
		})
	}
	return steps
}

func productFromItem(item *shopee.Item) domain.ShopeeProduct {
	if item == nil {
		return domain.ShopeeProduct{}
	}
	return domain.ShopeeProduct{
		ItemID:        item.ItemID,
		ShopID:        item.ShopID,
		Name:          item.Name,
		MainImage:     item.MainImage,
		Images:        item.Images,
		VariantImages: item.VariantImages,
	}
}

func productFromOffer(offer *affiliate.Offer) domain.ShopeeProduct {
	if offer == nil || offer.ImageURL == "" {
		return domain.ShopeeProduct{}
	}
	return domain.ShopeeProduct{
		ItemID:    offer.ItemID,
		ShopID:    offer.ShopID,
		Name:      offer.ProductName,
		MainImage: offer.ImageURL,
		Images:    []string{offer.ImageURL},
	}
}

// ExtractShopeeVideo returns the product video, trying the internal API video
// list, the static page, the rendered page and finally yt-dlp.
func (e *Extractors) ExtractShopeeVideo(ctx context.Context, rawURL string) domain.ExtractedVideo {
	identity, idErr := e.identify(ctx, rawURL)

	out, err := e.video.Run(ctx, identity)
	if err != nil {
		return domain.ExtractedVideo{
			Success:   false,
			SourceURL: rawURL,
			Error:     e.failure(ctx, err, idErr),
		}
	}
	video := out.Value
	video.Success = true
	video.Method = out.Step
	video.SourceURL = rawURL
	if video.Title == "" {
		video.Title = identity.Name
	}
	e.logger.Info().Str("url", rawURL).Str("method", out.Step).Msg("video extracted")
	return video
}

func (e *Extractors) videoSteps() []Step[domain.ProductIdentity, domain.ExtractedVideo] {
	var steps []Step[domain.ProductIdentity, domain.ExtractedVideo]
	if e.deps.Items != nil {
		steps = append(steps, Step[domain.ProductIdentity, domain.ExtractedVideo]{
			Name: StepInternalAPI,
			Run: func(ctx context.Context, id domain.ProductIdentity) (domain.ExtractedVideo, error) {
				if !id.HasIDs() {
					return domain.ExtractedVideo{}, nil
				}
				item, err := e.deps.Items.GetItem(ctx, id.ShopID, id.ItemID)
				if err != nil || len(item.Videos) == 0 {
					return domain.ExtractedVideo{}, err
				}
				v := item.Videos[0]
				return domain.ExtractedVideo{
					VideoURL:     v.URL,
					ThumbnailURL: v.ThumbnailURL,
					Title:        item.Name,
					Duration:     shopee.FormatDuration(v.Duration),
				}, nil
			},
		})
	}
	if e.deps.Scraper != nil {
		steps = append(steps, Step[domain.ProductIdentity, domain.ExtractedVideo]{
			Name: StepPageScrape,
			Run: func(ctx context.Context, id domain.ProductIdentity) (domain.ExtractedVideo, error) {
				page, err := e.deps.Scraper.ScrapeVideo(ctx, id.CanonicalURL)
				if err != nil {
					return domain.ExtractedVideo{}, err
				}
				return videoFromPage(page), nil
			},
		})
	}
	if e.deps.Renderer != nil {
		steps = append(steps, Step[domain.ProductIdentity, domain.ExtractedVideo]{
			Name: StepRenderedScrape,
			Run: func(ctx context.Context, id domain.ProductIdentity) (domain.ExtractedVideo, error) {
				html, err := e.deps.Renderer.Render(ctx, id.CanonicalURL, e.deps.RenderWait)
				if err != nil {
					return domain.ExtractedVideo{}, err
				}
				page, err := scraper.ParseVideo(id.CanonicalURL, html)
				if err != nil {
					return domain.ExtractedVideo{}, err
				}
				return videoFromPage(page), nil
			},
		})
	}
	if e.deps.Resolver != nil {
		steps = append(steps, Step[domain.ProductIdentity, domain.ExtractedVideo]{
			Name: StepYtDlp,
			Run: func(ctx context.Context, id domain.ProductIdentity) (domain.ExtractedVideo, error) {
				mediaURL, err := e.deps.Resolver.GetVideoURL(ctx, id.CanonicalURL)
				return domain.ExtractedVideo{VideoURL: mediaURL}, err
			},
		})
	}
	return steps
}

func videoFromPage(page *scraper.PageVideo) domain.ExtractedVideo {
	if page == nil {
		return domain.ExtractedVideo{}
	}
	return domain.ExtractedVideo{
		VideoURL:     page.VideoURL,
		ThumbnailURL: page.ThumbnailURL,
		Title:        page.Title,
		Description:  page.Description,
		Author:       page.Author,
		Duration:     page.Duration,
	}
}

// ExtractSoraVideo extracts a Sora share page, first from the static HTML and
// then from a rendered snapshot.
func (e *Extractors) ExtractSoraVideo(ctx context.Context, rawURL string) domain.SoraVideoData {
	rawURL = strings.TrimSpace(rawURL)
	out, err := e.sora.Run(ctx, rawURL)
	if err != nil {
		return domain.SoraVideoData{
			Success:   false,
			SourceURL: rawURL,
			Error:     e.failure(ctx, err, nil),
		}
	}
	data := out.Value
	data.Success = true
	data.Method = out.Step
	data.SourceURL = rawURL
	e.logger.Info().Str("url", rawURL).Str("method", out.Step).Msg("sora video extracted")
	return data
}

func (e *Extractors) soraSteps() []Step[string, domain.SoraVideoData] {
	var steps []Step[string, domain.SoraVideoData]
	if e.deps.Fetcher != nil {
		steps = append(steps, Step[string, domain.SoraVideoData]{
			Name: StepPageScrape,
			Run: func(ctx context.Context, pageURL string) (domain.SoraVideoData, error) {
				page, err := e.deps.Fetcher.Fetch(ctx, pageURL, nil)
				if err != nil {
					return domain.SoraVideoData{}, err
				}
				return SoraFromHTML(page.URL, string(page.Body)), nil
			},
		})
	}
	if e.deps.Renderer != nil {
		steps = append(steps, Step[string, domain.SoraVideoData]{
			Name: StepRenderedScrape,
			Run: func(ctx context.Context, pageURL string) (domain.SoraVideoData, error) {
				html, err := e.deps.Renderer.Render(ctx, pageURL, e.deps.RenderWait)
				if err != nil {
					return domain.SoraVideoData{}, err
				}
				return SoraFromHTML(pageURL, string(html)), nil
			},
		})
	}
	return steps
}

// ExtractVideo resolves any page URL to a downloadable media URL: direct media
// links pass through, then yt-dlp, the static page and the rendered page are tried.
func (e *Extractors) ExtractVideo(ctx context.Context, rawURL string) domain.ExtractedVideo {
	rawURL = strings.TrimSpace(rawURL)
	out, err := e.media.Run(ctx, rawURL)
	if err != nil {
		return domain.ExtractedVideo{
			Success:   false,
			SourceURL: rawURL,
			Error:     e.failure(ctx, err, nil),
		}
	}
	video := out.Value
	video.Success = true
	video.Method = out.Step
	video.SourceURL = rawURL
	return video
}

func (e *Extractors) mediaSteps() []Step[string, domain.ExtractedVideo] {
	steps := []Step[string, domain.ExtractedVideo]{{
		Name: StepDirectMedia,
		Run: func(ctx context.Context, pageURL string) (domain.ExtractedVideo, error) {
			if !IsDirectMedia(pageURL) {
				return domain.ExtractedVideo{}, nil
			}
			return domain.ExtractedVideo{VideoURL: pageURL}, nil
		},
	}}
	if e.deps.Resolver != nil {
		steps = append(steps, Step[string, domain.ExtractedVideo]{
			Name: StepYtDlp,
			Run: func(ctx context.Context, pageURL string) (domain.ExtractedVideo, error) {
				mediaURL, err := e.deps.Resolver.GetVideoURL(ctx, pageURL)
				return domain.ExtractedVideo{VideoURL: mediaURL}, err
			},
		})
	}
	if e.deps.Scraper != nil {
		steps = append(steps, Step[string, domain.ExtractedVideo]{
			Name: StepPageScrape,
			Run: func(ctx context.Context, pageURL string) (domain.ExtractedVideo, error) {
				page, err := e.deps.Scraper.ScrapeVideo(ctx, pageURL)
				if err != nil {
					return domain.ExtractedVideo{}, err
				}
				return videoFromPage(page), nil
			},
		})
	}
	if e.deps.Renderer != nil {
		steps = append(steps, Step[string, domain.ExtractedVideo]{
			Name: StepRenderedScrape,
			Run: func(ctx context.Context, pageURL string) (domain.ExtractedVideo, error) {
				html, err := e.deps.Renderer.Render(ctx, pageURL, e.deps.RenderWait)
				if err != nil {
					return domain.ExtractedVideo{}, err
				}
				page, err := scraper.ParseVideo(pageURL, html)
				if err != nil {
					return domain.ExtractedVideo{}, err
				}
				return videoFromPage(page), nil
			},
		})
	}
	return steps
}

// IsDirectMedia reports whether rawURL already points at a media file.
func IsDirectMedia(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp4", ".webm", ".mov", ".m4v":
		return true
	}
	return false
}

// SoraFromHTML applies the ordered field patterns to a share page.
func SoraFromHTML(pageURL, html string) domain.SoraVideoData {
	videoURL := scraper.ExtractField(html, scraper.VideoURLPatterns)
	if videoURL != "" {
		videoURL = scraper.ResolveURL(pageURL, videoURL)
	}
	thumb := scraper.ExtractField(html, scraper.ThumbnailPatterns)
	if thumb != "" {
		thumb = scraper.ResolveURL(pageURL, thumb)
	}
	return domain.SoraVideoData{
		VideoURL:     videoURL,
		ThumbnailURL: thumb,
		Prompt:       scraper.ExtractField(html, scraper.PromptPatterns),
		Title:        scraper.ExtractField(html, scraper.TitlePatterns),
		Creator:      scraper.ExtractField(html, scraper.CreatorPatterns),
	}
}

// failure picks the user-facing message for an exhausted chain. A context
// error wins, then an identity failure, then "nothing found".
func (e *Extractors) failure(ctx context.Context, chainErr, identityErr error) string {
	lang := domain.LanguageFrom(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.UserMessage(ctxErr, lang)
	}
	if identityErr != nil && errors.Is(chainErr, domain.ErrNothingFound) {
		return domain.UserMessage(identityErr, lang)
	}
	return domain.UserMessage(chainErr, lang)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
