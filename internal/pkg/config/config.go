package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "configs/tracker.yaml"

	defaultBaseURL          = "https://v3.football.api-sports.io"
	defaultHost             = "v3.football.api-sports.io"
	defaultTimeout          = 10 * time.Second
	defaultRateLimit        = 5.0
	defaultBurst            = 5
	defaultRetryAttempts    = 3
	defaultRetryBackoff     = 300 * time.Millisecond
	defaultBookmaker        = "1xbet"
	defaultCapital          = 10000.0
	defaultKellyCap         = 0.06
	defaultPort             = 8080
	defaultReadHeader       = 5 * time.Second
	defaultWatchInterval    = 60 * time.Second
	defaultLiveCacheTTL     = 15 * time.Second
	defaultFinishedCacheTTL = 24 * time.Hour
)

type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Tracking TrackingConfig `yaml:"tracking"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProviderConfig points at the football data API (API-Football v3 layout).
type ProviderConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Host          string        `yaml:"host"` // x-rapidapi-host
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	RateLimit     float64       `yaml:"rate_limit"` // requests per second
	Burst         int           `yaml:"burst"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

type TrackingConfig struct {
	DefaultBookmaker string         `yaml:"default_bookmaker"`
	Capital          float64        `yaml:"capital"`
	KellyCap         float64        `yaml:"kelly_cap"`
	BookmakerIDs     map[string]int `yaml:"bookmaker_ids"` // overrides/additions to the built-in table
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	LiveTTL     time.Duration `yaml:"live_ttl"`
	FinishedTTL time.Duration `yaml:"finished_ttl"`
}

type HTTPConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

type WatchConfig struct {
	Enabled          bool             `yaml:"enabled"`
	Interval         time.Duration    `yaml:"interval"`
	Fixtures         []WatchedFixture `yaml:"fixtures"`
	TelegramBotToken string           `yaml:"telegram_bot_token"`
	TelegramChatID   int64            `yaml:"telegram_chat_id"`
}

// WatchedFixture is a fixture tracked on every watch tick with the options held on it.
type WatchedFixture struct {
	FixtureID int64          `yaml:"fixture_id"`
	Bookmaker string         `yaml:"bookmaker"`
	Options   []OptionConfig `yaml:"options"`
}

type OptionConfig struct {
	Phrase string  `yaml:"phrase"`
	Odds   float64 `yaml:"odds"`
	Stake  float64 `yaml:"stake"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // optional JSON log file
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

// ResolvePath picks the config file: explicit flag value, then CONFIG_PATH, then the default.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return DefaultConfigPath
}

// applyEnv lets secrets come from the environment instead of the file.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("API_FOOTBALL_KEY"); ok && v != "" {
		c.Provider.APIKey = v
	}
	if v, ok := lookup("API_FOOTBALL_HOST"); ok && v != "" {
		c.Provider.Host = v
	}
	if v, ok := lookup("POSTGRES_DSN"); ok && v != "" {
		c.Postgres.DSN = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup("TELEGRAM_BOT_TOKEN"); ok && v != "" {
		c.Watch.TelegramBotToken = v
	}
	if v, ok := lookup("TELEGRAM_CHAT_ID"); ok && v != "" {
		chatID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.Watch.TelegramChatID = chatID
	}
	return nil
}

func (c *Config) applyDefaults() {
	p := &c.Provider
	if p.BaseURL == "" {
		p.BaseURL = defaultBaseURL
	}
	if p.Host == "" {
		p.Host = defaultHost
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.RateLimit <= 0 {
		p.RateLimit = defaultRateLimit
	}
	if p.Burst <= 0 {
		p.Burst = defaultBurst
	}
	if p.RetryAttempts <= 0 {
		p.RetryAttempts = defaultRetryAttempts
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = defaultRetryBackoff
	}

	t := &c.Tracking
	if t.DefaultBookmaker == "" {
		t.DefaultBookmaker = defaultBookmaker
	}
	if t.Capital <= 0 {
		t.Capital = defaultCapital
	}
	if t.KellyCap <= 0 || t.KellyCap > 1 {
		t.KellyCap = defaultKellyCap
	}

	if c.Redis.LiveTTL <= 0 {
		c.Redis.LiveTTL = defaultLiveCacheTTL
	}
	if c.Redis.FinishedTTL <= 0 {
		c.Redis.FinishedTTL = defaultFinishedCacheTTL
	}

	if c.HTTP.Port <= 0 {
		c.HTTP.Port = defaultPort
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		c.HTTP.ReadHeaderTimeout = defaultReadHeader
	}

	if c.Watch.Interval <= 0 {
		c.Watch.Interval = defaultWatchInterval
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
