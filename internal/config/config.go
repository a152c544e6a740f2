package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the root configuration for ad-scout.
type Config struct {
	Apify     ApifyConfig     `yaml:"apify" mapstructure:"apify"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ApifyConfig configures the ad-library scraper actor.
type ApifyConfig struct {
	Token            string        `yaml:"token" mapstructure:"token"`
	ActorID          string        `yaml:"actor_id" mapstructure:"actor_id"`
	BaseURL          string        `yaml:"base_url" mapstructure:"base_url"`
	Count            int           `yaml:"count" mapstructure:"count"`
	PollIntervalSecs int           `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollCapSecs      int           `yaml:"poll_cap_secs" mapstructure:"poll_cap_secs"`
	TimeoutSecs      int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLMins     int           `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	CacheSize        int           `yaml:"cache_size" mapstructure:"cache_size"`
	Retry            RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker          BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// RetryConfig holds per-call retry settings.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// BreakerConfig holds circuit breaker settings for the scraper.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// SearchConfig holds orchestration defaults applied to every search target.
type SearchConfig struct {
	Source               string `yaml:"source" mapstructure:"source"`
	SimulateSeed         uint64 `yaml:"simulate_seed" mapstructure:"simulate_seed"`
	MinAds               int    `yaml:"min_ads" mapstructure:"min_ads"`
	MinDaysRunning       int    `yaml:"min_days_running" mapstructure:"min_days_running"`
	MinAdsForLongRunning int    `yaml:"min_ads_for_long_running" mapstructure:"min_ads_for_long_running"`
	ResultCap            int    `yaml:"result_cap" mapstructure:"result_cap"`
	MaxKeywords          int    `yaml:"max_keywords" mapstructure:"max_keywords"`
	MaxCountries         int    `yaml:"max_countries" mapstructure:"max_countries"`
	ThrottleMs           int    `yaml:"throttle_ms" mapstructure:"throttle_ms"`
}

// ClassifyConfig selects the tier policy.
type ClassifyConfig struct {
	Policy        string `yaml:"policy" mapstructure:"policy"`
	WinnerDays    int    `yaml:"winner_days" mapstructure:"winner_days"`
	PotentialDays int    `yaml:"potential_days" mapstructure:"potential_days"`
}

// AnthropicConfig configures ad copy cloning.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures the global zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory (optional) and overlays
// ADSCOUT_* environment variables, e.g. ADSCOUT_APIFY_TOKEN.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("apify.token", "")
	v.SetDefault("apify.actor_id", "curious_coder~facebook-ads-library-scraper")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.count", 200)
	v.SetDefault("apify.poll_interval_secs", 5)
	v.SetDefault("apify.poll_cap_secs", 15)
	v.SetDefault("apify.timeout_secs", 240)
	v.SetDefault("apify.cache_ttl_mins", 30)
	v.SetDefault("apify.cache_size", 256)
	v.SetDefault("apify.retry.max_attempts", 3)
	v.SetDefault("apify.retry.initial_backoff_ms", 500)
	v.SetDefault("apify.retry.max_backoff_ms", 10000)
	v.SetDefault("apify.breaker.failure_threshold", 5)
	v.SetDefault("apify.breaker.reset_timeout_secs", 60)
	v.SetDefault("search.source", "apify")
	v.SetDefault("search.simulate_seed", 1)
	v.SetDefault("search.min_ads", 10)
	v.SetDefault("search.min_days_running", 30)
	v.SetDefault("search.min_ads_for_long_running", 5)
	v.SetDefault("search.result_cap", 50)
	v.SetDefault("search.max_keywords", 3)
	v.SetDefault("search.max_countries", 3)
	v.SetDefault("search.throttle_ms", 1000)
	v.SetDefault("classify.policy", "ads_count")
	v.SetDefault("classify.winner_days", 30)
	v.SetDefault("classify.potential_days", 7)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ad-scout.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// Validate checks the settings a command mode needs. Modes: "search",
// "serve", "clone", "apify", "store". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	switch c.Search.Source {
	case "apify", "simulated":
	default:
		errs = append(errs, fmt.Sprintf("search.source %q must be apify or simulated", c.Search.Source))
	}
	switch c.Classify.Policy {
	case "", "ads_count", "contact_duration":
	default:
		errs = append(errs, fmt.Sprintf("classify.policy %q must be ads_count or contact_duration", c.Classify.Policy))
	}
	if c.Search.ResultCap < 0 || c.Search.MaxKeywords < 0 || c.Search.MaxCountries < 0 {
		errs = append(errs, "search limits must be >= 0")
	}

	needStore := func() {
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}
	needToken := func() {
		if c.Apify.Token == "" {
			errs = append(errs, "apify.token is required")
		}
	}

	switch mode {
	case "search":
		needStore()
		if c.Search.Source == "apify" {
			needToken()
		}
	case "serve":
		needStore()
		if c.Search.Source == "apify" {
			needToken()
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "clone":
		needStore()
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "apify":
		needToken()
	case "store":
		needStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger from cfg.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
