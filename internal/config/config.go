package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort      = 3000
	DefaultSourceTimeout = 7 * time.Second
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultMinSpins      = 5
	DefaultFeedTimeout   = 7 * time.Second
	DefaultCacheTTL      = 20 * time.Second
	DefaultMaxTokens     = 300
	DefaultTemperature   = 0.7
	DefaultCallTimeout   = 15 * time.Second
	DefaultFetchTimeout  = 5 * time.Second
	DefaultMinLiveSpins  = 10
	DefaultMockSpins     = 80
	DefaultRecentWindow  = 20
	DefaultRoundTimeout  = 18 * time.Second
	DefaultPatternSims   = 4000
	DefaultInterval      = 60 * time.Second
	DefaultRetention     = 7 * 24 * time.Hour
	DefaultAlertCooldown = 15 * time.Minute
)

// Config is the full configuration tree. Fields map 1:1 to config.example.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Sources   []Source        `yaml:"sources"`
	Feed      FeedConfig      `yaml:"feed"`
	Providers ProvidersConfig `yaml:"providers"`
	Predictor PredictorConfig `yaml:"predictor"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Storage   StorageConfig   `yaml:"storage"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, websocket stream and UI listen on.
	// The PORT environment variable overrides it.
	HTTPPort int `yaml:"http_port"`

	// UIDir is an optional directory of static files served at "/".
	UIDir string `yaml:"ui_dir"`

	// CORSOrigins lists allowed origins. Empty means any origin.
	CORSOrigins []string `yaml:"cors_origins"`

	// Auth configures how mutating API requests are authenticated.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures REST API authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header the key is read from. Defaults to X-API-Key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key resolved from the environment.
func (a AuthConfig) Key() string { return getenv(a.KeyEnv) }

// Source describes one upstream history endpoint.
type Source struct {
	// ID is a unique, human-readable identifier for this source.
	ID string `yaml:"id"`

	// Type is the parser to apply: tracksino | ltccasino | html.
	Type string `yaml:"type"`

	// Endpoint is the full URL of the history endpoint or page.
	Endpoint string `yaml:"endpoint"`

	// Timeout caps a single request to this source.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent overrides the browser user agent sent upstream.
	UserAgent string `yaml:"user_agent"`
}

// FeedConfig controls how source results are raced and cached.
type FeedConfig struct {
	// MinSpins is the shortest history a source must return to be accepted.
	MinSpins int `yaml:"min_spins"`

	// Timeout caps the whole race across all sources.
	Timeout time.Duration `yaml:"timeout"`

	// CacheTTL is how long an accepted feed is served without re-scraping.
	// Zero disables caching.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig selects the feed cache backend.
type CacheConfig struct {
	// Backend is one of: memory | redis.
	Backend string `yaml:"backend"`

	// Addr is the redis host:port.
	Addr string `yaml:"addr"`

	// PasswordEnv names the environment variable holding the redis password.
	PasswordEnv string `yaml:"password_env"`

	DB int `yaml:"db"`
}

// Password returns the redis password resolved from the environment.
func (c CacheConfig) Password() string { return getenv(c.PasswordEnv) }

// ProvidersConfig holds the three model vendors.
type ProvidersConfig struct {
	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Google    ProviderConfig `yaml:"google"`
}

// ProviderConfig configures one model vendor.
type ProviderConfig struct {
	// KeyEnv is the name of the environment variable that holds the API key.
	KeyEnv string `yaml:"key_env"`

	// Endpoint is the full request URL (Anthropic, OpenAI) or the API base
	// URL override (Google). Empty keeps the vendor default.
	Endpoint string `yaml:"endpoint"`

	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`

	// Temperature is sent only when non-zero; zero leaves the vendor default.
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Key returns the API key resolved from the environment.
func (p ProviderConfig) Key() string { return getenv(p.KeyEnv) }

// PredictorConfig tunes one prediction round.
type PredictorConfig struct {
	// FetchTimeout bounds the live feed fetch at the start of a round.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// MinLiveSpins is the shortest live history used as-is; anything shorter
	// is replaced by MockSpins synthetic outcomes.
	MinLiveSpins int `yaml:"min_live_spins"`
	MockSpins    int `yaml:"mock_spins"`

	// RecentWindow is how many newest spins are sent to the models.
	RecentWindow int `yaml:"recent_window"`

	// CallTimeout bounds each provider call.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// Seed fixes the scorer PRNG. Zero seeds from the clock.
	Seed uint32 `yaml:"seed"`

	PatternSims int `yaml:"pattern_sims"`
}

// ScheduleConfig controls auto-predict.
type ScheduleConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// StorageConfig configures round history persistence.
type StorageConfig struct {
	// Backend is one of: sqlite | postgres | none.
	Backend string `yaml:"backend"`

	// Path is the filesystem path for the SQLite database file.
	Path string `yaml:"path"`

	// DSNEnv names the environment variable holding the postgres DSN.
	DSNEnv string `yaml:"dsn_env"`

	// Retention is how long rounds are kept before pruning. Zero keeps all.
	Retention time.Duration `yaml:"retention"`
}

// DSN returns the postgres connection string resolved from the environment.
func (s StorageConfig) DSN() string { return getenv(s.DSNEnv) }

// AlertsConfig holds all alerting rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines a condition evaluated against every finished round.
type AlertRule struct {
	Name string `yaml:"name"`

	// Condition is an expression like "confidence > 90" or
	// "agreement == unanimous".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | discord | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string { return getenv(w.URLEnv) }

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | console.
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config file at path. An empty path yields
// the defaults. A .env file beside the config (or in the working directory
// when path is empty) is loaded first so *_env fields can resolve from it.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching the
// filesystem or the environment.
func Default() *Config { return defaults() }

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Auth:     AuthConfig{Mode: "none", Header: "X-API-Key"},
		},
		Sources: []Source{
			{
				ID:       "tracksino",
				Type:     "tracksino",
				Endpoint: "https://api.tracksino.com/crazytime_history?sorting=&period=latest&page_num=1&per_page=60",
				Timeout:  DefaultSourceTimeout,
			},
			{
				ID:       "ltccasino",
				Type:     "ltccasino",
				Endpoint: "https://www.ltccasino.io/api/crazy-time/history?limit=60",
				Timeout:  DefaultSourceTimeout,
			},
		},
		Feed: FeedConfig{
			MinSpins: DefaultMinSpins,
			Timeout:  DefaultFeedTimeout,
			CacheTTL: DefaultCacheTTL,
			Cache:    CacheConfig{Backend: "memory"},
		},
		Providers: ProvidersConfig{
			// No temperature: Claude keeps the API default.
			Anthropic: ProviderConfig{
				KeyEnv:    "ANTHROPIC_API_KEY",
				Endpoint:  "https://api.anthropic.com/v1/messages",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: DefaultMaxTokens,
				Timeout:   DefaultCallTimeout,
			},
			OpenAI: ProviderConfig{
				KeyEnv:      "OPENAI_API_KEY",
				Endpoint:    "https://api.openai.com/v1/chat/completions",
				Model:       "gpt-4o",
				MaxTokens:   DefaultMaxTokens,
				Temperature: DefaultTemperature,
				Timeout:     DefaultCallTimeout,
			},
			Google: ProviderConfig{
				KeyEnv:      "GOOGLE_API_KEY",
				Model:       "gemini-2.0-flash-exp",
				MaxTokens:   DefaultMaxTokens,
				Temperature: DefaultTemperature,
				Timeout:     DefaultCallTimeout,
			},
		},
		Predictor: PredictorConfig{
			FetchTimeout: DefaultFetchTimeout,
			MinLiveSpins: DefaultMinLiveSpins,
			MockSpins:    DefaultMockSpins,
			RecentWindow: DefaultRecentWindow,
			CallTimeout:  DefaultRoundTimeout,
			PatternSims:  DefaultPatternSims,
		},
		Schedule: ScheduleConfig{
			Enabled:  true,
			Interval: DefaultInterval,
		},
		Storage: StorageConfig{
			Backend:   "none",
			Path:      "predictor.db",
			DSNEnv:    "DATABASE_URL",
			Retention: DefaultRetention,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// validate checks required fields and structural constraints, and fills
// per-entry defaults that cannot be expressed in defaults().
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey":
		if cfg.Server.Auth.KeyEnv == "" {
			return errors.New("server.auth.key_env is required for apikey mode")
		}
		if cfg.Server.Auth.Header == "" {
			cfg.Server.Auth.Header = "X-API-Key"
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth: unknown mode %q", cfg.Server.Auth.Mode)
	}

	if len(cfg.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	seen := make(map[string]bool, len(cfg.Sources))
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true
		if src.Endpoint == "" {
			return fmt.Errorf("sources[%d] %q: endpoint is required", i, src.ID)
		}
		switch src.Type {
		case "tracksino", "ltccasino", "html":
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.ID, src.Type)
		}
		if src.Timeout <= 0 {
			src.Timeout = DefaultSourceTimeout
		}
		if src.UserAgent == "" {
			src.UserAgent = DefaultUserAgent
		}
	}

	if cfg.Feed.MinSpins <= 0 {
		return errors.New("feed.min_spins must be positive")
	}
	if cfg.Feed.Timeout <= 0 {
		return errors.New("feed.timeout must be positive")
	}
	switch cfg.Feed.Cache.Backend {
	case "memory", "":
	case "redis":
		if cfg.Feed.Cache.Addr == "" {
			return errors.New("feed.cache.addr is required for redis backend")
		}
	default:
		return fmt.Errorf("feed.cache: unknown backend %q", cfg.Feed.Cache.Backend)
	}

	p := cfg.Predictor
	if p.MinLiveSpins <= 0 || p.MockSpins <= 0 || p.RecentWindow <= 0 || p.PatternSims <= 0 {
		return errors.New("predictor: min_live_spins, mock_spins, recent_window and pattern_sims must be positive")
	}
	if p.CallTimeout <= 0 || p.FetchTimeout <= 0 {
		return errors.New("predictor: timeouts must be positive")
	}

	if cfg.Schedule.Enabled && cfg.Schedule.Interval < time.Second {
		return errors.New("schedule.interval must be at least 1s")
	}

	switch cfg.Storage.Backend {
	case "none", "":
	case "sqlite":
		if cfg.Storage.Path == "" {
			return errors.New("storage.path is required for sqlite backend")
		}
	case "postgres":
		if cfg.Storage.DSNEnv == "" {
			return errors.New("storage.dsn_env is required for postgres backend")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}

	for i := range cfg.Alerts.Rules {
		r := &cfg.Alerts.Rules[i]
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d]: name and condition are required", i)
		}
		if r.Cooldown <= 0 {
			r.Cooldown = DefaultAlertCooldown
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "discord", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}

	switch cfg.Log.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("log: unknown format %q", cfg.Log.Format)
	}
	return nil
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
