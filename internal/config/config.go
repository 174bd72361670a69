package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TOWERS_CACHE_URL.
const EnvPrefix = "TOWERS"

type Config struct {
	Port          string        `mapstructure:"port"`
	LogLevel      string        `mapstructure:"log_level"`
	Auth          Auth          `mapstructure:"auth"`
	CORS          CORS          `mapstructure:"cors"`
	Mirror        Mirror        `mapstructure:"mirror"`
	Authoritative Authoritative `mapstructure:"authoritative"`
	Cache         Cache         `mapstructure:"cache"`
	TimeSeries    TimeSeries    `mapstructure:"timeseries"`
	MQTT          MQTT          `mapstructure:"mqtt"`
	Scheduler     Scheduler     `mapstructure:"scheduler"`
	Alerts        Alerts        `mapstructure:"alerts"`
	Sync          Sync          `mapstructure:"sync"`
}

type Auth struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Mirror struct {
	Path string `mapstructure:"path"`
}

// Authoritative selects and configures the system-of-record driver.
type Authoritative struct {
	Driver   string        `mapstructure:"driver"` // postgrest | postgres
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	DSN      string        `mapstructure:"dsn"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxConns int32         `mapstructure:"max_conns"`
}

type Cache struct {
	URL       string        `mapstructure:"url"`
	LatestTTL time.Duration `mapstructure:"latest_ttl"`
}

// TimeSeries is disabled when URL is empty.
type TimeSeries struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

func (t TimeSeries) Enabled() bool { return t.URL != "" }

// MQTT is disabled when Broker is empty.
type MQTT struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

func (m MQTT) Enabled() bool { return m.Broker != "" }

type Scheduler struct {
	Interval     time.Duration `mapstructure:"interval"`
	ErrorBackoff time.Duration `mapstructure:"error_backoff"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
	Autostart    bool          `mapstructure:"autostart"`
}

type Alerts struct {
	TemperatureHigh float64 `mapstructure:"temperature_high"`
	TemperatureLow  float64 `mapstructure:"temperature_low"`
	HumidityHigh    float64 `mapstructure:"humidity_high"`
	BatteryLow      float64 `mapstructure:"battery_low"`
}

type Sync struct {
	Tables   []string      `mapstructure:"tables"`
	Interval time.Duration `mapstructure:"interval"` // 0 reconciles at startup only
}

var defaults = map[string]any{
	"port":                    "8080",
	"log_level":               "info",
	"auth.signing_key":        "",
	"auth.token_ttl":          time.Hour,
	"cors.allowed_origins":    []string{"http://localhost:5173", "http://127.0.0.1:5173"},
	"mirror.path":             "db.sqlite3",
	"authoritative.driver":    "postgrest",
	"authoritative.url":       "",
	"authoritative.api_key":   "",
	"authoritative.dsn":       "",
	"authoritative.timeout":   15 * time.Second,
	"authoritative.max_conns": 8,
	"cache.url":               "redis://localhost:6379/0",
	"cache.latest_ttl":        time.Hour,
	"timeseries.url":          "",
	"timeseries.token":        "",
	"timeseries.org":          "",
	"timeseries.bucket":       "",
	"mqtt.broker":             "",
	"mqtt.client_id":          "tower-monitoring",
	"mqtt.topic_prefix":       "towers",
	"scheduler.interval":      10 * time.Second,
	"scheduler.error_backoff": 30 * time.Second,
	"scheduler.stop_timeout":  5 * time.Second,
	"scheduler.autostart":     true,
	"alerts.temperature_high": 35.0,
	"alerts.temperature_low":  5.0,
	"alerts.humidity_high":    90.0,
	"alerts.battery_low":      20.0,
	"sync.tables":             []string{"torres", "profiles", "payments"},
	"sync.interval":           time.Duration(0),
}

// Load reads configs/config.yml (or the file named by TOWERS_CONFIG) and applies
// TOWERS_* environment overrides. A .env file in the working directory is loaded first.
// A missing config file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Authoritative.Driver {
	case "postgrest":
		if c.Authoritative.URL == "" {
			return errors.New("authoritative.url is required for the postgrest driver")
		}
	case "postgres":
		if c.Authoritative.DSN == "" {
			return errors.New("authoritative.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown authoritative.driver %q", c.Authoritative.Driver)
	}
	if c.Scheduler.Interval <= 0 {
		return errors.New("scheduler.interval must be positive")
	}
	// A zero TTL makes the latest-value keys permanent.
	if c.Cache.LatestTTL <= 0 {
		return errors.New("cache.latest_ttl must be positive")
	}
	return nil
}
