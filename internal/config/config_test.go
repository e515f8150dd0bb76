package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taipulse.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  data_dir: "/tmp/taipulse/data"
  sqlite_path: "/tmp/taipulse/articles.db"
server:
  host: "0.0.0.0"
  port: 9000
logging:
  level: "debug"
  file: "/tmp/taipulse/server.log"
scan:
  interval_minutes: 15
  digest_time: "08:00"
  timezone: "Asia/Taipei"
  window_hours: 48
fusion:
  news_weight: 0.5
  volume_weight: 0.25
  momentum_weight: 0.25
  min_score: 35
social:
  enabled: true
  pages: 3
telegram:
  token: "test-token"
  chat_id: 12345
watchlist: ["2330", "2317"]
sources:
  - key: "cna_finance"
    name: "中央社 財經"
    url: "https://feeds.feedburner.com/rsscna/finance?format=xml"
    category: "news"
    format: "xml"
    weight: 1.3
`)

	os.Unsetenv("TAIPULSE_DATA_DIR")
	os.Unsetenv("TAIPULSE_LOG_LEVEL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/taipulse/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/taipulse/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/taipulse/articles.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/taipulse/articles.db")
	}
	if cfg.Server.Addr() != "0.0.0.0:9000" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "0.0.0.0:9000")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Scan.IntervalMinutes != 15 {
		t.Errorf("Scan.IntervalMinutes = %d, want %d", cfg.Scan.IntervalMinutes, 15)
	}
	if cfg.Scan.DigestTime != "08:00" {
		t.Errorf("Scan.DigestTime = %q, want %q", cfg.Scan.DigestTime, "08:00")
	}
	if cfg.Fusion.NewsWeight != 0.5 {
		t.Errorf("Fusion.NewsWeight = %v, want %v", cfg.Fusion.NewsWeight, 0.5)
	}
	if cfg.Fusion.MinScore != 35 {
		t.Errorf("Fusion.MinScore = %v, want %v", cfg.Fusion.MinScore, 35.0)
	}
	if !cfg.Social.Enabled || cfg.Social.Pages != 3 {
		t.Errorf("Social = %+v, want enabled with 3 pages", cfg.Social)
	}
	if cfg.Telegram.Token != "test-token" || cfg.Telegram.ChatID != 12345 {
		t.Errorf("Telegram = %+v, want token/chat_id from YAML", cfg.Telegram)
	}
	if len(cfg.Watchlist) != 2 || cfg.Watchlist[0] != "2330" {
		t.Errorf("Watchlist = %v, want [2330 2317]", cfg.Watchlist)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Key != "cna_finance" {
		t.Fatalf("Sources = %+v, want the single configured source", cfg.Sources)
	}
	if cfg.Sources[0].Weight != 1.3 {
		t.Errorf("Sources[0].Weight = %v, want 1.3", cfg.Sources[0].Weight)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  data_dir: \"/tmp/taipulse-defaults\"\n")

	os.Unsetenv("TAIPULSE_DATA_DIR")
	os.Unsetenv("TAIPULSE_SQLITE_PATH")
	os.Unsetenv("TAIPULSE_PORT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.SQLitePath != filepath.Join("/tmp/taipulse-defaults", "articles.db") {
		t.Errorf("SQLitePath default = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("Server.Port default = %d, want 8787", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level default = %q, want info", cfg.Logging.Level)
	}
	if cfg.Scan.IntervalMinutes != 30 || cfg.Scan.DigestTime != "07:30" {
		t.Errorf("Scan defaults = %+v", cfg.Scan)
	}
	if cfg.Scan.Timezone != "Asia/Taipei" {
		t.Errorf("Scan.Timezone default = %q", cfg.Scan.Timezone)
	}
	if cfg.Fusion.NewsWeight != 0.4 || cfg.Fusion.VolumeWeight != 0.3 || cfg.Fusion.MomentumWeight != 0.3 {
		t.Errorf("Fusion weight defaults = %+v", cfg.Fusion)
	}
	if cfg.Fusion.MinScore != 40 {
		t.Errorf("Fusion.MinScore default = %v, want 40", cfg.Fusion.MinScore)
	}
	if len(cfg.Sources) != 14 {
		t.Errorf("default sources = %d entries, want 14", len(cfg.Sources))
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  data_dir: "/original/data"
telegram:
  token: "yaml-token"
`)

	os.Setenv("TAIPULSE_DATA_DIR", "/env/data")
	os.Setenv("TAIPULSE_TELEGRAM_TOKEN", "env-token")
	os.Setenv("TAIPULSE_PORT", "9191")
	defer os.Unsetenv("TAIPULSE_DATA_DIR")
	defer os.Unsetenv("TAIPULSE_TELEGRAM_TOKEN")
	defer os.Unsetenv("TAIPULSE_PORT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("Telegram.Token = %q, want %q (env override)", cfg.Telegram.Token, "env-token")
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191 (env override)", cfg.Server.Port)
	}
	// chat_id has no env value set and no YAML value, stays zero.
	if cfg.Telegram.ChatID != 0 {
		t.Errorf("Telegram.ChatID = %d, want 0", cfg.Telegram.ChatID)
	}
}

func TestDefaultSourcesWellFormed(t *testing.T) {
	for _, s := range DefaultSources() {
		if s.Key == "" || s.URL == "" || s.Weight <= 0 {
			t.Errorf("builtin source %+v is malformed", s)
		}
		if s.Format != "xml" && s.Format != "json" {
			t.Errorf("builtin source %s has unknown format %q", s.Key, s.Format)
		}
	}
}
