package config

import (
	"fmt"
	"strings"
	"time"

	"sma_trader/internal/helper"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const envPrefix = "TS"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type HealthConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // ":8080"; empty disables the server
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`
	ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

type JournalConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"` // empty disables the journal
}

type Config struct {
	ExchangeID string `mapstructure:"exchange_id" yaml:"exchange_id"`
	Symbol     string `mapstructure:"symbol" yaml:"symbol"`
	Timeframe  string `mapstructure:"timeframe" yaml:"timeframe"`

	// strategy
	FastWindow int `mapstructure:"fast_window" yaml:"fast_window"`
	SlowWindow int `mapstructure:"slow_window" yaml:"slow_window"`

	// trading
	BaseOrderSize float64 `mapstructure:"base_order_size" yaml:"base_order_size"`
	QuoteCurrency string  `mapstructure:"quote_currency" yaml:"quote_currency"`
	DryRun        bool    `mapstructure:"dry_run" yaml:"dry_run"`
	Sandbox       bool    `mapstructure:"sandbox" yaml:"sandbox"`

	// credentials
	APIKey        string `mapstructure:"api_key" yaml:"api_key"`
	APISecret     string `mapstructure:"api_secret" yaml:"api_secret"`
	APIPassphrase string `mapstructure:"api_passphrase" yaml:"api_passphrase"`

	PollInterval   int `mapstructure:"poll_interval" yaml:"poll_interval"`     // seconds
	RequestTimeout int `mapstructure:"request_timeout" yaml:"request_timeout"` // seconds

	Health   HealthConfig   `mapstructure:"health" yaml:"health"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Journal  JournalConfig  `mapstructure:"journal" yaml:"journal"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange_id", "binance")
	v.SetDefault("symbol", "BTC/USDT")
	v.SetDefault("timeframe", "1m")
	v.SetDefault("fast_window", 5)
	v.SetDefault("slow_window", 20)
	v.SetDefault("base_order_size", 0.001)
	v.SetDefault("quote_currency", "USDT")
	v.SetDefault("dry_run", true)
	v.SetDefault("sandbox", false)
	v.SetDefault("api_key", "")
	v.SetDefault("api_secret", "")
	v.SetDefault("api_passphrase", "")
	v.SetDefault("poll_interval", 60)
	v.SetDefault("request_timeout", 10)

	v.SetDefault("health.addr", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("journal.dsn", "")
}

// Load resolves the configuration: TS_* environment, then the .env file, then the YAML
// file, then defaults. The returned config is validated.
func Load(flags Flags) (*Config, error) {
	if flags.EnvFile != "" {
		if err := godotenv.Load(flags.EnvFile); err != nil {
			return nil, errors.Wrapf(err, "load env file %s", flags.EnvFile)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	if flags.ConfigPath != "" {
		v.SetConfigFile(flags.ConfigPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", flags.ConfigPath)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.ExchangeID = strings.ToLower(strings.TrimSpace(cfg.ExchangeID))
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	cfg.QuoteCurrency = strings.ToUpper(strings.TrimSpace(cfg.QuoteCurrency))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ExchangeID == "" {
		return fmt.Errorf("%w: exchange_id is empty", ErrInvalid)
	}
	if _, _, ok := helper.SplitSymbol(c.Symbol); !ok {
		return fmt.Errorf("%w: symbol %q must look like BASE/QUOTE", ErrInvalid, c.Symbol)
	}
	if c.Timeframe == "" {
		return fmt.Errorf("%w: timeframe is empty", ErrInvalid)
	}
	if c.FastWindow < 1 {
		return fmt.Errorf("%w: fast_window must be > 0", ErrInvalid)
	}
	if c.FastWindow >= c.SlowWindow {
		return fmt.Errorf("%w: fast_window (%d) must be smaller than slow_window (%d)", ErrInvalid, c.FastWindow, c.SlowWindow)
	}
	if c.BaseOrderSize <= 0 {
		return fmt.Errorf("%w: base_order_size must be > 0", ErrInvalid)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be > 0", ErrInvalid)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be > 0", ErrInvalid)
	}
	if !c.DryRun && (c.APIKey == "" || c.APISecret == "") {
		return fmt.Errorf("%w: api_key and api_secret are required when dry_run is off", ErrInvalid)
	}
	if !c.DryRun && c.ExchangeID == "okx" && c.APIPassphrase == "" {
		return fmt.Errorf("%w: okx needs api_passphrase when dry_run is off", ErrInvalid)
	}
	return nil
}

// BaseCurrency is the part of the symbol before "/" (BTC in BTC/USDT).
func (c *Config) BaseCurrency() string {
	base, _, _ := helper.SplitSymbol(c.Symbol)
	return base
}

func (c *Config) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	out := *c
	out.APIKey = redact(out.APIKey)
	out.APISecret = redact(out.APISecret)
	out.APIPassphrase = redact(out.APIPassphrase)
	out.Telegram.Token = redact(out.Telegram.Token)
	out.Journal.DSN = redact(out.Journal.DSN)
	return out
}

// Dump renders the redacted config as YAML.
func (c *Config) Dump() (string, error) {
	bs, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return "", errors.Wrap(err, "marshal config to yaml")
	}
	return string(bs), nil
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
