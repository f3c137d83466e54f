package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Marketview MarketviewConfig `yaml:"marketview"`
	Source     SourceConfig     `yaml:"source"`
	Views      ViewsConfig      `yaml:"views"`
	Candles    CandlesConfig    `yaml:"candles"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type MarketviewConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SourceConfig struct {
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key"`
	Timeout        time.Duration        `yaml:"timeout"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Endpoints      EndpointsConfig      `yaml:"endpoints"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type EndpointsConfig struct {
	Trades    string `yaml:"trades"`
	Orderbook string `yaml:"orderbook"`
	Quotes    string `yaml:"quotes"`
}

type ViewsConfig struct {
	Tickers []string   `yaml:"tickers"`
	Book    ViewConfig `yaml:"book"`
	Tape    ViewConfig `yaml:"tape"`
	Quotes  ViewConfig `yaml:"quotes"`
}

// ViewConfig controls one poll loop. Intervals observed in production run
// from 2s for books to 30s for the quote board.
type ViewConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type CandlesConfig struct {
	Period string `yaml:"period"` // day, hour or minute
}

type ChannelsConfig struct {
	DepthBuffer  int `yaml:"depth_buffer"`
	CandleBuffer int `yaml:"candle_buffer"`
	TapeBuffer   int `yaml:"tape_buffer"`
	QuoteBuffer  int `yaml:"quote_buffer"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	CloudWatch    bool   `yaml:"cloudwatch"`
	DashboardName string `yaml:"dashboard_name"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Candles: CandlesConfig{Period: "day"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides for deploy-specific settings.
	if v := os.Getenv("VENUE_BASE_URL"); v != "" {
		config.Source.BaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("VENUE_API_KEY"); v != "" {
		config.Source.APIKey = strings.TrimSpace(v)
	}

	config.Source.BaseURL = strings.TrimRight(strings.TrimSpace(config.Source.BaseURL), "/")

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Source.Timeout <= 0 {
		cfg.Source.Timeout = 10 * time.Second
	}
	if cfg.Source.Endpoints.Trades == "" {
		cfg.Source.Endpoints.Trades = "/api/v1/trades"
	}
	if cfg.Source.Endpoints.Orderbook == "" {
		cfg.Source.Endpoints.Orderbook = "/api/v1/orderbook"
	}
	if cfg.Source.Endpoints.Quotes == "" {
		cfg.Source.Endpoints.Quotes = "/api/v1/quotes"
	}
	if cfg.Views.Book.Interval <= 0 {
		cfg.Views.Book.Interval = 2 * time.Second
	}
	if cfg.Views.Tape.Interval <= 0 {
		cfg.Views.Tape.Interval = 5 * time.Second
	}
	if cfg.Views.Quotes.Interval <= 0 {
		cfg.Views.Quotes.Interval = 30 * time.Second
	}
	if cfg.Channels.DepthBuffer <= 0 {
		cfg.Channels.DepthBuffer = 64
	}
	if cfg.Channels.CandleBuffer <= 0 {
		cfg.Channels.CandleBuffer = 64
	}
	if cfg.Channels.TapeBuffer <= 0 {
		cfg.Channels.TapeBuffer = 64
	}
	if cfg.Channels.QuoteBuffer <= 0 {
		cfg.Channels.QuoteBuffer = 16
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Marketview.Name == "" {
		return fmt.Errorf("marketview.name is required")
	}

	if cfg.Marketview.Version == "" {
		return fmt.Errorf("marketview.version is required")
	}

	if cfg.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}

	if !strings.HasPrefix(cfg.Source.BaseURL, "http://") && !strings.HasPrefix(cfg.Source.BaseURL, "https://") {
		return fmt.Errorf("source.base_url '%s' must be an http(s) URL", cfg.Source.BaseURL)
	}

	if cfg.Source.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("source.rate_limit.requests_per_second must not be negative")
	}

	if !isValidCandlePeriod(cfg.Candles.Period) {
		return fmt.Errorf("candles.period '%s' is invalid (want day, hour or minute)", cfg.Candles.Period)
	}

	if len(cfg.Views.Tickers) == 0 && IsProductionLike(AppEnvironment()) {
		return fmt.Errorf("views.tickers must not be empty in %s", AppEnvironment())
	}

	for _, vc := range []struct {
		name string
		cfg  ViewConfig
	}{
		{"views.book", cfg.Views.Book},
		{"views.tape", cfg.Views.Tape},
		{"views.quotes", cfg.Views.Quotes},
	} {
		if vc.cfg.Enabled && vc.cfg.Interval < time.Second {
			return fmt.Errorf("%s.interval must be at least 1s", vc.name)
		}
	}

	return nil
}

func isValidCandlePeriod(period string) bool {
	switch strings.ToLower(period) {
	case "day", "hour", "minute":
		return true
	default:
		return false
	}
}
