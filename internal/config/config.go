package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for capexport.
type Config struct {
	Site     SiteConfig     `mapstructure:"site"     yaml:"site"`
	Engine   EngineConfig   `mapstructure:"engine"   yaml:"engine"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Parser   ParserConfig   `mapstructure:"parser"   yaml:"parser"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Catalog  CatalogConfig  `mapstructure:"catalog"  yaml:"catalog"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// SiteConfig describes the catalog site being exported.
type SiteConfig struct {
	BaseURL     string `mapstructure:"base_url"     yaml:"base_url"     validate:"required,url"`
	ImageScheme string `mapstructure:"image_scheme" yaml:"image_scheme" validate:"required,oneof=http: https:"`

	// Corrections rewrite known-bad substrings in team links.
	Corrections []Correction `mapstructure:"corrections" yaml:"corrections" validate:"dive"`
}

// Correction replaces From with To. Matching is case-sensitive.
type Correction struct {
	From string `mapstructure:"from" yaml:"from" validate:"required"`
	To   string `mapstructure:"to"   yaml:"to"`
}

// EngineConfig controls traversal and the fetch scheduler.
type EngineConfig struct {
	Concurrency      int           `mapstructure:"concurrency"        yaml:"concurrency"        validate:"min=1,max=1000"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"    yaml:"request_timeout"    validate:"gt=0"`
	PolitenessDelay  time.Duration `mapstructure:"politeness_delay"   yaml:"politeness_delay"   validate:"gte=0"`
	MaxRetries       int           `mapstructure:"max_retries"        yaml:"max_retries"        validate:"gte=0"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"        yaml:"retry_delay"        validate:"gte=0"`
	MaxPages         int           `mapstructure:"max_pages"          yaml:"max_pages"          validate:"gte=0"`
	DedupURLs        bool          `mapstructure:"dedup_urls"         yaml:"dedup_urls"`
	RespectRobotsTxt bool          `mapstructure:"respect_robots_txt" yaml:"respect_robots_txt"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"     validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"    validate:"gte=0"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout" validate:"gte=0"`
	// CacheDir enables the on-disk response cache. Empty disables it.
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// ParserConfig holds the product-page patterns.
type ParserConfig struct {
	NamePattern        string   `mapstructure:"name_pattern"        yaml:"name_pattern"        validate:"required"`
	DescriptionPattern string   `mapstructure:"description_pattern" yaml:"description_pattern" validate:"required"`
	PricePattern       string   `mapstructure:"price_pattern"       yaml:"price_pattern"       validate:"required"`
	ImagePattern       string   `mapstructure:"image_pattern"       yaml:"image_pattern"       validate:"required"`
	ImageSkipMarkers   []string `mapstructure:"image_skip_markers"  yaml:"image_skip_markers"`
}

// IdentityConfig selects the disambiguation strategy.
type IdentityConfig struct {
	Strategy string `mapstructure:"strategy" yaml:"strategy" validate:"oneof=counting content_diff"`
}

// StorageConfig controls export sinks.
type StorageConfig struct {
	// Types lists the sinks to write to: csv, jsonl, mongo, postgres.
	Types           []string `mapstructure:"types"            yaml:"types"            validate:"min=1,dive,oneof=csv jsonl mongo postgres"`
	OutputDir       string   `mapstructure:"output_dir"       yaml:"output_dir"       validate:"required"`
	MongoURI        string   `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string   `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string   `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	PostgresDSN     string   `mapstructure:"postgres_dsn"     yaml:"postgres_dsn"`
	PostgresTable   string   `mapstructure:"postgres_table"   yaml:"postgres_table"`
}

// CatalogConfig lists what the run command exports.
type CatalogConfig struct {
	Categories  []CategorySource `mapstructure:"categories"  yaml:"categories"  validate:"dive"`
	Collections []string         `mapstructure:"collections" yaml:"collections"`
}

// CategorySource names a two-level category and its directory page token.
type CategorySource struct {
	Label string `mapstructure:"label" yaml:"label" validate:"required"`
	Page  string `mapstructure:"page"  yaml:"page"  validate:"required"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config matching the zhats.com catalog layout.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:     "http://www.zhats.com",
			ImageScheme: "http:",
			Corrections: []Correction{
				{From: "Canacdiens", To: "Canadiens"},
			},
		},
		Engine: EngineConfig{
			Concurrency:      64,
			RequestTimeout:   30 * time.Second,
			PolitenessDelay:  0,
			MaxRetries:       3,
			RetryDelay:       1 * time.Second,
			MaxPages:         0,
			DedupURLs:        true,
			RespectRobotsTxt: false,
		},
		Fetcher: FetcherConfig{
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
			CacheDir:        "cache",
		},
		Parser: ParserConfig{
			NamePattern:        `itemprop="name">(.+)</h1>`,
			DescriptionPattern: `<div class="rte">((?s:.+?))</div>`,
			PricePattern:       `<meta property="og:price:amount" content="(\S+)">`,
			ImagePattern:       `//(\S+?)\.(jpg|png|gif|jpeg)`,
			ImageSkipMarkers:   []string{"large", "grande", "1024"},
		},
		Identity: IdentityConfig{
			Strategy: "counting",
		},
		Storage: StorageConfig{
			Types:           []string{"csv"},
			OutputDir:       "./output",
			MongoDatabase:   "capexport",
			MongoCollection: "export_products",
			PostgresTable:   "export_products",
		},
		Catalog: CatalogConfig{
			Categories: []CategorySource{
				{Label: "NCAA", Page: "ncaateams"},
				{Label: "NHL", Page: "nhl-teams"},
			},
			Collections: []string{
				"blank", "colorado-flag", "country", "state", "dad-hats", "knits",
				"youth", "lacer", "toa", "original-six-1", "zephyr-brand", "powwow",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
