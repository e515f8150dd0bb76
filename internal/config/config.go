package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the taipulse services.
type Config struct {
	Storage   Storage      `yaml:"storage"`
	Server    Server       `yaml:"server"`
	Logging   Logging      `yaml:"logging"`
	Scan      ScanConfig   `yaml:"scan"`
	Fusion    FusionConfig `yaml:"fusion"`
	Social    SocialConfig `yaml:"social"`
	Telegram  Telegram     `yaml:"telegram"`
	Reference Reference    `yaml:"reference"`
	Watchlist []string     `yaml:"watchlist"`
	Sources   []Source     `yaml:"sources"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (s Server) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ScanConfig controls the periodic news scan and the morning digest job.
type ScanConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes"`
	DigestTime      string `yaml:"digest_time"` // HH:MM, local to Timezone
	Timezone        string `yaml:"timezone"`
	WindowHours     int    `yaml:"window_hours"`
}

// FusionConfig seeds the composite-ranking weights and threshold. The
// runtime parameter store takes these as initial values.
type FusionConfig struct {
	NewsWeight     float64 `yaml:"news_weight"`
	VolumeWeight   float64 `yaml:"volume_weight"`
	MomentumWeight float64 `yaml:"momentum_weight"`
	MinScore       float64 `yaml:"min_score"`
}

// SocialConfig controls the PTT board scanner.
type SocialConfig struct {
	Enabled bool `yaml:"enabled"`
	Pages   int  `yaml:"pages"`
}

// Telegram holds delivery credentials for digests and alerts. Leave the
// token empty to disable delivery.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Reference locates the security master CSV files.
type Reference struct {
	Dir string `yaml:"dir"`
}

// Source describes one configured news feed. Format is "xml" for
// syndication feeds and "json" for JSON APIs; entries failing validation are
// skipped when the fetch list is built.
type Source struct {
	Key      string  `yaml:"key"`
	Name     string  `yaml:"name"`
	URL      string  `yaml:"url"`
	Category string  `yaml:"category"`
	Format   string  `yaml:"format"`
	Weight   float64 `yaml:"weight"`
	Disabled bool    `yaml:"disabled"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// DefaultPath resolves the configuration file location: the TAIPULSE_CONFIG
// environment variable when set, otherwise config/taipulse.yaml.
func DefaultPath() string {
	if v := os.Getenv("TAIPULSE_CONFIG"); v != "" {
		return v
	}
	return "config/taipulse.yaml"
}

// Load reads the YAML configuration file at the given path, parses it,
// fills defaults, and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.DataDir, "articles.db")
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8787
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Scan.IntervalMinutes == 0 {
		cfg.Scan.IntervalMinutes = 30
	}
	if cfg.Scan.DigestTime == "" {
		cfg.Scan.DigestTime = "07:30"
	}
	if cfg.Scan.Timezone == "" {
		cfg.Scan.Timezone = "Asia/Taipei"
	}
	if cfg.Scan.WindowHours == 0 {
		cfg.Scan.WindowHours = 24
	}
	if cfg.Fusion.NewsWeight == 0 && cfg.Fusion.VolumeWeight == 0 && cfg.Fusion.MomentumWeight == 0 {
		cfg.Fusion.NewsWeight = 0.4
		cfg.Fusion.VolumeWeight = 0.3
		cfg.Fusion.MomentumWeight = 0.3
	}
	if cfg.Fusion.MinScore == 0 {
		cfg.Fusion.MinScore = 40
	}
	if cfg.Social.Pages == 0 {
		cfg.Social.Pages = 5
	}
	if cfg.Reference.Dir == "" {
		cfg.Reference.Dir = filepath.Join(cfg.Storage.DataDir, "reference")
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TAIPULSE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("TAIPULSE_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("TAIPULSE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TAIPULSE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TAIPULSE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TAIPULSE_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("TAIPULSE_REFERENCE_DIR"); v != "" {
		cfg.Reference.Dir = v
	}
	if v := os.Getenv("TAIPULSE_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TAIPULSE_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
}

// ---------------------------------------------------------------------------
// Builtin sources
// ---------------------------------------------------------------------------

// DefaultSources returns the builtin feed table used when the config file
// lists none. Weights reflect editorial trust: regulator announcements above
// wire services above aggregators.
func DefaultSources() []Source {
	return []Source{
		{Key: "yahoo_news", Name: "Yahoo 最新新聞", URL: "https://tw.stock.yahoo.com/rss?category=news", Category: "news", Format: "xml", Weight: 1.0},
		{Key: "yahoo_tw_market", Name: "Yahoo 台股動態", URL: "https://tw.stock.yahoo.com/rss?category=tw-market", Category: "market", Format: "xml", Weight: 1.2},
		{Key: "yahoo_intl", Name: "Yahoo 國際財經", URL: "https://tw.stock.yahoo.com/rss?category=intl-markets", Category: "international", Format: "xml", Weight: 0.8},
		{Key: "udn_stock", Name: "聯合新聞 股市", URL: "https://money.udn.com/rssfeed/news/1001/5641?ch=money", Category: "market", Format: "xml", Weight: 1.0},
		{Key: "cna_finance", Name: "中央社 財經", URL: "https://feeds.feedburner.com/rsscna/finance?format=xml", Category: "news", Format: "xml", Weight: 1.3},
		{Key: "ltn_business", Name: "自由時報 財經", URL: "https://news.ltn.com.tw/rss/business.xml", Category: "news", Format: "xml", Weight: 1.0},
		{Key: "cw_content", Name: "天下雜誌", URL: "https://www.cw.com.tw/RSS/cw_content.xml", Category: "column", Format: "xml", Weight: 0.9},
		{Key: "fsc_news", Name: "金管會 新聞稿", URL: "https://www.fsc.gov.tw/RSS/Messages?language=chinese&serno=201202290001", Category: "regulation", Format: "xml", Weight: 1.5},
		{Key: "fsc_policy", Name: "金管會 政策消息", URL: "https://www.fsc.gov.tw/RSS/Messages?language=chinese&serno=201202290009", Category: "regulation", Format: "xml", Weight: 1.5},
		{Key: "sfb_news", Name: "證期局 新聞稿", URL: "https://www.sfb.gov.tw/RSS/sfb/Messages?language=chinese&serno=201501270006", Category: "regulation", Format: "xml", Weight: 1.5},
		{Key: "yahoo_us_market", Name: "Yahoo 美股市場", URL: "https://tw.stock.yahoo.com/rss?category=us-market", Category: "us_stock", Format: "xml", Weight: 0.8},
		{Key: "cnyes_us", Name: "鉅亨網 美股", URL: "https://news.cnyes.com/api/v3/news/category/us_stock?limit=30", Category: "us_stock", Format: "json", Weight: 0.9},
		{Key: "cnyes_tw", Name: "鉅亨網 台股", URL: "https://news.cnyes.com/api/v3/news/category/tw_stock?limit=30", Category: "market", Format: "json", Weight: 1.1},
		{Key: "moneydj_us", Name: "MoneyDJ 美股", URL: "https://www.moneydj.com/KMDJ/RssCenter.aspx?svc=NR&fno=100&arg=MB07", Category: "us_stock", Format: "xml", Weight: 0.9},
	}
}
