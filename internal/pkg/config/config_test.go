package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
provider:
  api_key: file-key
  timeout: 3s
tracking:
  default_bookmaker: bet365
  kelly_cap: 0.1
  bookmaker_ids:
    marathonbet: 2
watch:
  enabled: true
  interval: 30s
  fixtures:
    - fixture_id: 1035037
      bookmaker: 1xbet
      options:
        - phrase: Victoire domicile
          odds: 2.1
          stake: 100
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("API_FOOTBALL_KEY", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Provider.APIKey, "file-key")
	}
	if cfg.Provider.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.Provider.Timeout)
	}
	if cfg.Provider.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.Provider.BaseURL)
	}
	if cfg.Tracking.DefaultBookmaker != "bet365" || cfg.Tracking.KellyCap != 0.1 {
		t.Errorf("Tracking = %+v", cfg.Tracking)
	}
	if cfg.Tracking.Capital != defaultCapital {
		t.Errorf("Capital = %v, want %v", cfg.Tracking.Capital, defaultCapital)
	}
	if cfg.Tracking.BookmakerIDs["marathonbet"] != 2 {
		t.Errorf("BookmakerIDs = %v", cfg.Tracking.BookmakerIDs)
	}
	if cfg.Watch.Interval != 30*time.Second || len(cfg.Watch.Fixtures) != 1 {
		t.Fatalf("Watch = %+v", cfg.Watch)
	}
	opt := cfg.Watch.Fixtures[0].Options[0]
	if opt.Phrase != "Victoire domicile" || opt.Odds != 2.1 || opt.Stake != 100 {
		t.Errorf("option = %+v", opt)
	}
	if cfg.HTTP.Port != defaultPort {
		t.Errorf("Port = %d, want %d", cfg.HTTP.Port, defaultPort)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_FOOTBALL_KEY", "env-key")
	t.Setenv("POSTGRES_DSN", "postgres://tracker@localhost/tracker")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Provider.APIKey)
	}
	if cfg.Postgres.DSN != "postgres://tracker@localhost/tracker" {
		t.Errorf("DSN = %q", cfg.Postgres.DSN)
	}
	if cfg.Redis.Addr != "localhost:6380" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Watch.TelegramBotToken != "token" || cfg.Watch.TelegramChatID != -100123 {
		t.Errorf("Watch telegram = %q / %d", cfg.Watch.TelegramBotToken, cfg.Watch.TelegramChatID)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}
	if _, err := Load(writeConfig(t, "provider: [")); err == nil {
		t.Error("Load(invalid yaml) error = nil, want error")
	}

	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	if _, err := Load(writeConfig(t, sampleConfig)); err == nil {
		t.Error("Load(bad chat id) error = nil, want error")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	if got := ResolvePath(""); got != DefaultConfigPath {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, DefaultConfigPath)
	}
	t.Setenv("CONFIG_PATH", "/etc/tracker.yaml")
	if got := ResolvePath(""); got != "/etc/tracker.yaml" {
		t.Errorf("ResolvePath(\"\") = %q, want env path", got)
	}
	if got := ResolvePath("local.yaml"); got != "local.yaml" {
		t.Errorf("ResolvePath(flag) = %q, want flag path", got)
	}
}
