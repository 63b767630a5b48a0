// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl     CrawlConfig    `mapstructure:"crawl"`
	Browser   BrowserConfig  `mapstructure:"browser"`
	Site      SiteConfig     `mapstructure:"site"`
	Storage   StorageConfig  `mapstructure:"storage"`
	Progress  ProgressConfig `mapstructure:"progress"`
	Selectors string         `mapstructure:"selectors_file"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
	Logging   LoggingConfig  `mapstructure:"logging"`
}

// CrawlConfig governs the orchestrator loop.
type CrawlConfig struct {
	Keywords        []string `mapstructure:"keywords"`
	PerKeywordLimit int      `mapstructure:"per_keyword_limit"`
	DailyLimit      int      `mapstructure:"daily_limit"`
	MinLikes        int      `mapstructure:"min_likes"`
	Warmup          bool     `mapstructure:"warmup"`
	Shuffle         bool     `mapstructure:"shuffle"`
	ClassifierGate  bool     `mapstructure:"classifier_gate"`
	SearchRounds    int      `mapstructure:"search_rounds"`
}

// BrowserConfig configures the controlled browser session.
type BrowserConfig struct {
	AttachAddr     string        `mapstructure:"attach_addr"`
	UserAgent      string        `mapstructure:"user_agent"`
	NavTimeout     time.Duration `mapstructure:"nav_timeout"`
	RequestsPerMin float64       `mapstructure:"requests_per_min"`
}

// SiteConfig holds the remote surfaces the crawler navigates between.
type SiteConfig struct {
	HomeURL    string `mapstructure:"home_url"`
	SearchBase string `mapstructure:"search_base"`
}

// StorageConfig selects and parameterizes the persisted-record sink.
type StorageConfig struct {
	Format      string `mapstructure:"format"`
	OutputDir   string `mapstructure:"output_dir"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ProgressConfig locates the day-scoped resume record.
type ProgressConfig struct {
	File string `mapstructure:"file"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MIMICRED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.per_keyword_limit", 20)
	v.SetDefault("crawl.daily_limit", 0)
	v.SetDefault("crawl.min_likes", 0)
	v.SetDefault("crawl.warmup", true)
	v.SetDefault("crawl.shuffle", true)
	v.SetDefault("crawl.classifier_gate", true)
	v.SetDefault("crawl.search_rounds", 8)
	v.SetDefault("browser.attach_addr", "127.0.0.1:9222")
	v.SetDefault("browser.nav_timeout", "45s")
	v.SetDefault("browser.requests_per_min", 30.0)
	v.SetDefault("site.home_url", "https://www.xiaohongshu.com")
	v.SetDefault("site.search_base", "https://www.xiaohongshu.com/search_result")
	v.SetDefault("storage.format", "sqlite")
	v.SetDefault("storage.output_dir", "datas")
	v.SetDefault("progress.file", "datas/crawl_progress.json")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.PerKeywordLimit <= 0 {
		return fmt.Errorf("crawl.per_keyword_limit must be > 0")
	}
	if c.Crawl.DailyLimit < 0 {
		return fmt.Errorf("crawl.daily_limit must be >= 0")
	}
	if c.Crawl.SearchRounds <= 0 {
		return fmt.Errorf("crawl.search_rounds must be > 0")
	}
	if c.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser.nav_timeout must be > 0")
	}
	if c.Site.HomeURL == "" {
		return fmt.Errorf("site.home_url must be set")
	}
	if c.Site.SearchBase == "" {
		return fmt.Errorf("site.search_base must be set")
	}
	if c.Storage.Format == "" {
		return fmt.Errorf("storage.format must be set")
	}
	if c.Storage.Format == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn must be set when storage.format is postgres")
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must be set")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	return nil
}
