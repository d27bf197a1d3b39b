package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration wraps every validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Binance struct {
		BaseURL    string        `yaml:"base_url"`
		QuoteAsset string        `yaml:"quote_asset"`
		Interval   string        `yaml:"interval"`
		Limit      int           `yaml:"limit"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"binance"`
	Oracle struct {
		TickerVariants []string      `yaml:"ticker_variants"`
		AttemptTimeout time.Duration `yaml:"attempt_timeout"`
		CoinGecko      struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"coingecko"`
	} `yaml:"oracle"`
	Evaluator struct {
		ExpiryDays  int           `yaml:"expiry_days"`
		HoldMinDays int           `yaml:"hold_min_days"`
		HoldBandPct float64       `yaml:"hold_band_pct"`
		Throttle    time.Duration `yaml:"throttle"`
	} `yaml:"evaluator"`
	Schedule struct {
		EvaluateCron string `yaml:"evaluate_cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		Driver    string `yaml:"driver"` // sqlite, postgres or memory
		DSN       string `yaml:"dsn"`
		StateFile string `yaml:"state_file"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		QuoteTTL time.Duration `yaml:"quote_ttl"`
	} `yaml:"redis"`
	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"` // optional, for compatible gateways
	} `yaml:"openai"`
	HTTP struct {
		Addr         string   `yaml:"addr"`
		AllowOrigins []string `yaml:"allow_origins"` // CORS is off when empty
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Tracing struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"tracing"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env (if present), then the YAML file, then environment
// variable overrides, then fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID: %v", ErrConfiguration, err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.Oracle.CoinGecko.APIKey = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.Driver = "sqlite"
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("HTTP_ALLOW_ORIGINS"); v != "" {
		c.HTTP.AllowOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.HTTP.AllowOrigins = append(c.HTTP.AllowOrigins, o)
			}
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("CRON_EVALUATE"); v != "" {
		c.Schedule.EvaluateCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = v == "true"
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = v == "true"
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Binance.BaseURL == "" {
		c.Binance.BaseURL = "https://api.binance.com"
	}
	if c.Binance.QuoteAsset == "" {
		c.Binance.QuoteAsset = "USDT"
	}
	if c.Binance.Interval == "" {
		c.Binance.Interval = "1h"
	}
	if c.Binance.Limit == 0 {
		c.Binance.Limit = 100
	}
	if c.Binance.Timeout == 0 {
		c.Binance.Timeout = 8 * time.Second
	}
	if len(c.Oracle.TickerVariants) == 0 {
		c.Oracle.TickerVariants = []string{"%sUSDT", "%sUSDC", "%sBUSD", "%sFDUSD"}
	}
	if c.Oracle.AttemptTimeout == 0 {
		c.Oracle.AttemptTimeout = 3 * time.Second
	}
	if c.Oracle.CoinGecko.BaseURL == "" {
		c.Oracle.CoinGecko.BaseURL = "https://api.coingecko.com"
	}
	if c.Evaluator.ExpiryDays == 0 {
		c.Evaluator.ExpiryDays = 30
	}
	if c.Evaluator.HoldMinDays == 0 {
		c.Evaluator.HoldMinDays = 7
	}
	if c.Evaluator.HoldBandPct == 0 {
		c.Evaluator.HoldBandPct = 10
	}
	if c.Evaluator.Throttle == 0 {
		c.Evaluator.Throttle = 500 * time.Millisecond
	}
	if c.Schedule.EvaluateCron == "" {
		c.Schedule.EvaluateCron = "0 0 * * * *"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "data/signal_sentinel.db"
	}
	if c.Database.StateFile == "" {
		c.Database.StateFile = "data/recommendations.json"
	}
	if c.Redis.QuoteTTL == 0 {
		c.Redis.QuoteTTL = 10 * time.Minute
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		return fmt.Errorf("%w: telegram.bot_token and telegram.chat_id must be set together", ErrConfiguration)
	}
	if !strings.HasPrefix(c.Binance.BaseURL, "http") {
		return fmt.Errorf("%w: binance.base_url must be an http(s) url", ErrConfiguration)
	}
	if c.Binance.Limit < 1 || c.Binance.Limit > 1000 {
		return fmt.Errorf("%w: binance.limit must be between 1 and 1000", ErrConfiguration)
	}
	for _, v := range c.Oracle.TickerVariants {
		if strings.Count(v, "%s") != 1 {
			return fmt.Errorf("%w: oracle.ticker_variants entry %q must contain one %%s", ErrConfiguration, v)
		}
	}
	if c.Evaluator.ExpiryDays <= 0 || c.Evaluator.HoldMinDays <= 0 {
		return fmt.Errorf("%w: evaluator day thresholds must be positive", ErrConfiguration)
	}
	if c.Evaluator.HoldBandPct <= 0 {
		return fmt.Errorf("%w: evaluator.hold_band_pct must be positive", ErrConfiguration)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for %s", ErrConfiguration, c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: database.driver %q is not one of sqlite, postgres, memory", ErrConfiguration, c.Database.Driver)
	}
	return nil
}

// EvaluatorThrottle returns the effective pause between oracle lookups.
// An unset or zero evaluator.throttle gets the 500ms default in Load; a
// negative value turns throttling off.
func (c *Config) EvaluatorThrottle() time.Duration {
	if c.Evaluator.Throttle < 0 {
		return 0
	}
	return c.Evaluator.Throttle
}
