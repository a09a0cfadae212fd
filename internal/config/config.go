// Package config loads settings from built-in defaults, an optional YAML file
// and the environment, in that order of precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the YAML file path.
const EnvConfigPath = "VIDEOMINER_CONFIG"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Mining     MiningConfig     `yaml:"mining"`
	Shopee     ShopeeConfig     `yaml:"shopee"`
	Affiliate  AffiliateConfig  `yaml:"affiliate"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl"`
	AI         AIConfig         `yaml:"ai"`
	Generation GenerationConfig `yaml:"generation"`
	Pinterest  PinterestConfig  `yaml:"pinterest"`
	Redis      RedisConfig      `yaml:"redis"`
	YtDlp      YtDlpConfig      `yaml:"ytdlp"`
	DataDir    string           `yaml:"data_dir"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	AccessPin      string        `yaml:"access_pin"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or pretty
}

type MiningConfig struct {
	AdapterTimeout time.Duration `yaml:"adapter_timeout"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	MaxImages      int           `yaml:"max_images"`
}

type ShopeeConfig struct {
	BaseURL   string `yaml:"base_url"`
	ImageBase string `yaml:"image_base"`
}

type AffiliateConfig struct {
	AppID    string `yaml:"app_id"`
	Secret   string `yaml:"secret"`
	Endpoint string `yaml:"endpoint"`
}

type FirecrawlConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	WaitFor time.Duration `yaml:"wait_for"`
}

type AIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	TextModel  string `yaml:"text_model"`
	ImageModel string `yaml:"image_model"`
}

type GenerationConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollBudget   time.Duration `yaml:"poll_budget"`
}

type PinterestConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	BaseURL      string `yaml:"base_url"`
}

// RedisConfig enables the mining result cache when URL is set.
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

type YtDlpConfig struct {
	Path        string `yaml:"path"`
	SearchLimit int    `yaml:"search_limit"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			RequestTimeout: 4 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Mining: MiningConfig{
			AdapterTimeout: 15 * time.Second,
			FetchTimeout:   20 * time.Second,
			MaxImages:      20,
		},
		Shopee: ShopeeConfig{
			BaseURL:   "https://shopee.vn",
			ImageBase: "https://down-vn.img.susercontent.com/file/",
		},
		Affiliate: AffiliateConfig{Endpoint: "https://open-api.affiliate.shopee.vn/graphql"},
		Firecrawl: FirecrawlConfig{BaseURL: "https://api.firecrawl.dev", WaitFor: 5 * time.Second},
		AI: AIConfig{
			BaseURL:    "https://openrouter.ai/api/v1",
			TextModel:  "openai/gpt-4o-mini",
			ImageModel: "google/gemini-2.5-flash-image-preview",
		},
		Generation: GenerationConfig{
			PollInterval: 5 * time.Second,
			PollBudget:   3 * time.Minute,
		},
		Pinterest: PinterestConfig{BaseURL: "https://api.pinterest.com/v5"},
		Redis:     RedisConfig{TTL: 10 * time.Minute},
		YtDlp:     YtDlpConfig{Path: "yt-dlp", SearchLimit: 5},
		DataDir:   "data",
	}
}

// Load builds the configuration. path may be empty, in which case
// VIDEOMINER_CONFIG is consulted; a missing file there is an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Port = envOrDefault("PORT", cfg.Server.Port)
	cfg.Server.AccessPin = envOrDefault("ACCESS_PIN", cfg.Server.AccessPin)
	if origins := envOrDefault("CORS_ORIGINS", ""); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}
	cfg.Log.Level = envOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("LOG_FORMAT", cfg.Log.Format)

	cfg.Shopee.BaseURL = envOrDefault("SHOPEE_BASE_URL", cfg.Shopee.BaseURL)
	cfg.Shopee.ImageBase = envOrDefault("SHOPEE_IMAGE_BASE", cfg.Shopee.ImageBase)
	cfg.Affiliate.AppID = envOrDefault("SHOPEE_AFFILIATE_APP_ID", cfg.Affiliate.AppID)
	cfg.Affiliate.Secret = envOrDefault("SHOPEE_AFFILIATE_SECRET", cfg.Affiliate.Secret)
	cfg.Affiliate.Endpoint = envOrDefault("SHOPEE_AFFILIATE_ENDPOINT", cfg.Affiliate.Endpoint)
	cfg.Firecrawl.APIKey = envOrDefault("FIRECRAWL_API_KEY", cfg.Firecrawl.APIKey)
	cfg.Firecrawl.BaseURL = envOrDefault("FIRECRAWL_BASE_URL", cfg.Firecrawl.BaseURL)
	cfg.AI.APIKey = envOrDefault("OPENROUTER_API_KEY", cfg.AI.APIKey)
	cfg.AI.BaseURL = envOrDefault("AI_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.TextModel = envOrDefault("AI_TEXT_MODEL", cfg.AI.TextModel)
	cfg.AI.ImageModel = envOrDefault("AI_IMAGE_MODEL", cfg.AI.ImageModel)
	cfg.Generation.APIKey = envOrDefault("VIDEO_API_KEY", cfg.Generation.APIKey)
	cfg.Generation.BaseURL = envOrDefault("VIDEO_API_BASE_URL", cfg.Generation.BaseURL)
	cfg.Generation.Model = envOrDefault("VIDEO_MODEL", cfg.Generation.Model)
	cfg.Pinterest.ClientID = envOrDefault("PINTEREST_CLIENT_ID", cfg.Pinterest.ClientID)
	cfg.Pinterest.ClientSecret = envOrDefault("PINTEREST_CLIENT_SECRET", cfg.Pinterest.ClientSecret)
	cfg.Pinterest.RedirectURI = envOrDefault("PINTEREST_REDIRECT_URI", cfg.Pinterest.RedirectURI)
	cfg.Redis.URL = envOrDefault("REDIS_URL", cfg.Redis.URL)
	cfg.YtDlp.Path = envOrDefault("YTDLP_PATH", cfg.YtDlp.Path)
	cfg.DataDir = envOrDefault("DATA_DIR", cfg.DataDir)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ADAPTER_TIMEOUT_SECONDS", &cfg.Mining.AdapterTimeout},
		{"FETCH_TIMEOUT_SECONDS", &cfg.Mining.FetchTimeout},
		{"REQUEST_TIMEOUT_SECONDS", &cfg.Server.RequestTimeout},
		{"CACHE_TTL_SECONDS", &cfg.Redis.TTL},
		{"VIDEO_POLL_BUDGET_SECONDS", &cfg.Generation.PollBudget},
	}
	for _, d := range durations {
		if envOrDefault(d.key, "") == "" {
			continue
		}
		seconds, err := parseIntEnv(d.key, 0)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = time.Duration(seconds) * time.Second
	}

	maxImages, err := parseIntEnv("MAX_IMAGES", int64(cfg.Mining.MaxImages))
	if err != nil {
		return fmt.Errorf("parse MAX_IMAGES: %w", err)
	}
	cfg.Mining.MaxImages = int(maxImages)

	searchLimit, err := parseIntEnv("YOUTUBE_SEARCH_LIMIT", int64(cfg.YtDlp.SearchLimit))
	if err != nil {
		return fmt.Errorf("parse YOUTUBE_SEARCH_LIMIT: %w", err)
	}
	cfg.YtDlp.SearchLimit = int(searchLimit)

	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
