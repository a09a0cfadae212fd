// Package app builds the object graph shared by the server and the CLI.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"videominer/internal/adapters/affiliate"
	"videominer/internal/adapters/aigateway"
	"videominer/internal/adapters/fetcher"
	"videominer/internal/adapters/firecrawl"
	genclient "videominer/internal/adapters/generation"
	"videominer/internal/adapters/localstorage"
	"videominer/internal/adapters/pinterest"
	"videominer/internal/adapters/rediscache"
	"videominer/internal/adapters/scraper"
	"videominer/internal/adapters/searchlink"
	"videominer/internal/adapters/shopee"
	"videominer/internal/adapters/ytdlp"
	"videominer/internal/config"
	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
	gen "videominer/internal/generation"
	httpserver "videominer/internal/http"
	"videominer/internal/identity"
	"videominer/internal/service"
)

// App holds the wired services.
type App struct {
	Orchestrator *service.Orchestrator
	Extractors   *service.Extractors
	Download     *service.DownloadJob
	AI           *aigateway.Client
	Tasks        *genclient.Client
	Poller       *gen.Poller
	Pinterest    *pinterest.Client

	cfg    config.Config
	closer func() error
}

// New wires every adapter from cfg. Optional integrations without credentials
// are left out of the fallback chains. A failing Redis connection disables
// the cache instead of failing startup.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) *App {
	fetch := fetcher.NewHTTPFetcher(cfg.Mining.FetchTimeout)
	ident := identity.NewExtractor(fetch, logger)
	shopeeClient := shopee.NewClient(fetch, cfg.Shopee.BaseURL, cfg.Shopee.ImageBase, logger)
	pageScraper := scraper.NewScraper(fetch, cfg.Mining.MaxImages, logger)
	ytClient := ytdlp.NewClient(cfg.YtDlp.Path, logger)

	deps := service.ExtractorDeps{
		Identity:   ident,
		Items:      shopeeClient,
		Scraper:    pageScraper,
		Fetcher:    fetch,
		RenderWait: cfg.Firecrawl.WaitFor,
	}
	if aff := affiliate.NewClient(cfg.Affiliate.AppID, cfg.Affiliate.Secret, cfg.Affiliate.Endpoint, logger); aff.Configured() {
		deps.Offers = aff
	} else {
		logger.Info().Msg("affiliate credentials missing, affiliate steps disabled")
	}
	if fc := firecrawl.NewClient(cfg.Firecrawl.APIKey, cfg.Firecrawl.BaseURL, logger); fc.Configured() {
		deps.Renderer = fc
	} else {
		logger.Info().Msg("firecrawl key missing, rendered scraping disabled")
	}
	if ytClient.Available() {
		deps.Resolver = ytClient
	} else {
		logger.Warn().Msg("yt-dlp not found, youtube falls back to search links")
	}

	extractors := service.NewExtractors(deps, logger)
	adapters := []ports.Adapter{
		extractors.ShopeeMiningAdapter(shopee.NewAdapter(shopeeClient)),
		ytdlp.NewAdapter(ytClient, cfg.YtDlp.SearchLimit),
	}
	for _, src := range []domain.Source{
		domain.SourceAliExpress,
		domain.SourcePinterest,
		domain.SourceTikTok,
		domain.SourceInstagram,
		domain.SourceFacebook,
	} {
		adapters = append(adapters, searchlink.NewAdapter(src))
	}

	var cache ports.ResultCache = rediscache.Noop{}
	closer := func() error { return nil }
	if cfg.Redis.URL != "" {
		rc, err := rediscache.New(ctx, cfg.Redis.URL, cfg.Redis.TTL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, mining cache disabled")
		} else {
			cache = rc
			closer = rc.Close
		}
	}

	tasks := genclient.NewClient(cfg.Generation.APIKey, cfg.Generation.BaseURL, cfg.Generation.Model, logger)

	return &App{
		Orchestrator: service.NewOrchestrator(ident, adapters, cache, cfg.Mining.AdapterTimeout, logger),
		Extractors:   extractors,
		Download:     service.NewDownloadJob(extractors, fetch, localstorage.NewLocalStorage(cfg.DataDir), logger),
		AI:           aigateway.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.TextModel, cfg.AI.ImageModel, logger),
		Tasks:        tasks,
		Poller: gen.NewPoller(tasks, logger,
			gen.WithInterval(cfg.Generation.PollInterval),
			gen.WithBudget(cfg.Generation.PollBudget)),
		Pinterest: pinterest.NewClient(cfg.Pinterest.ClientID, cfg.Pinterest.ClientSecret, cfg.Pinterest.RedirectURI, cfg.Pinterest.BaseURL, logger),
		cfg:       cfg,
		closer:    closer,
	}
}

// Services exposes the app to the HTTP layer.
func (a *App) Services() httpserver.Services {
	return httpserver.Services{
		Miner:     a.Orchestrator,
		Extractor: a.Extractors,
		Writer:    a.AI,
		Publisher: a.Pinterest,
		Tasks:     a.Tasks,
		Poller:    a.Poller,
		Budget:    a.cfg.Generation.PollBudget,
	}
}

// Close releases the cache connection.
func (a *App) Close() error {
	return a.closer()
}
