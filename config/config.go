package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"marketqa/internal/signals"
)

// Config holds all application configuration. Values come from, in
// increasing precedence: built-in defaults, an optional YAML file, a .env
// file and the process environment.
type Config struct {
	// Market store
	SQLitePath   string `yaml:"sqlite_path"`
	SQLiteDriver string `yaml:"sqlite_driver"`

	// Response cache (empty RedisAddr disables it)
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"-"`
	CacheTTLSec   int           `yaml:"cache_ttl_sec"`

	// API
	HTTPAddr       string  `yaml:"http_addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	LogLevel string `yaml:"log_level"`

	// Watchlist scanner
	Watchlist []string `yaml:"watchlist"`
	ScanCron  string   `yaml:"scan_cron"`

	// Alerts
	WebhookURL       string `yaml:"webhook_url"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`

	// Signal thresholds. Indicator periods are not configurable: each
	// IndicatorRow column is named for its period.
	Signals signals.Thresholds `yaml:"signals"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SQLitePath:     "data/market.db",
		SQLiteDriver:   "sqlite3",
		CacheTTLSec:    300,
		CacheTTL:       300 * time.Second,
		HTTPAddr:       ":8085",
		RateLimitRPS:   10,
		RateLimitBurst: 20,
		LogLevel:       "info",
		// 18:30 on weekdays, after the daily bars land
		ScanCron: "0 30 18 * * 1-5",
		Signals:  signals.DefaultThresholds(),
	}
}

// Load builds the configuration. path names an optional YAML file; when
// empty, CONFIG_PATH is consulted. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSec) * time.Second
	cfg.Watchlist = ParseWatchlist(strings.Join(cfg.Watchlist, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config parse %s: %w", path, err)
	}
	log.Printf("[config] loaded %s", path)
	return nil
}

func (c *Config) applyEnv() error {
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.SQLiteDriver = getEnv("SQLITE_DRIVER", c.SQLiteDriver)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ScanCron = getEnv("SCAN_CRON", c.ScanCron)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.TelegramChatID)

	var err error
	if c.RedisDB, err = getInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	if c.CacheTTLSec, err = getInt("CACHE_TTL_SEC", c.CacheTTLSec); err != nil {
		return err
	}
	if c.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", c.RateLimitBurst); err != nil {
		return err
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config RATE_LIMIT_RPS=%q: %w", v, err)
		}
		c.RateLimitRPS = f
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = ParseWatchlist(v)
	}
	if v := os.Getenv("INDICATOR_CONFIGS"); v != "" {
		return fmt.Errorf("config INDICATOR_CONFIGS=%q: indicator periods are fixed (SMA50, SMA200, EMA10, EMA20, RSI14, ADX14)", v)
	}
	return nil
}

// ParseWatchlist splits a comma-separated ticker list, uppercasing and
// dropping blanks and duplicates.
func ParseWatchlist(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Validate checks the configuration for values that would fail later.
func (c *Config) Validate() error {
	var errs []error
	if c.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH must be set"))
	}
	switch c.SQLiteDriver {
	case "sqlite3", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("SQLITE_DRIVER=%q: want sqlite3 or sqlite", c.SQLiteDriver))
	}
	if c.CacheTTLSec <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL_SEC=%d must be positive", c.CacheTTLSec))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate limit %.2f rps / burst %d must be positive", c.RateLimitRPS, c.RateLimitBurst))
	}
	if _, err := cron.NewParser(CronFields).Parse(c.ScanCron); err != nil {
		errs = append(errs, fmt.Errorf("SCAN_CRON=%q: %w", c.ScanCron, err))
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}
	if c.Signals.Oversold >= c.Signals.Overbought {
		errs = append(errs, fmt.Errorf("signals: oversold %.2f must be below overbought %.2f", c.Signals.Oversold, c.Signals.Overbought))
	}
	return errors.Join(errs...)
}

// CronFields is the schedule syntax for SCAN_CRON: six fields with seconds.
const CronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config %s=%q: %w", key, v, err)
	}
	return n, nil
}
