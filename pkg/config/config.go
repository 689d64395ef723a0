package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"QuoteCache/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QUOTECACHE_"

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled" default:"true"`
			RPS     float64 `yaml:"rps" default:"50" validate:"gt=0"`
			Burst   int     `yaml:"burst" default:"100" validate:"min=1"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
	} `yaml:"metrics"`
	Logger logger.Config `yaml:"logger"`
	Cache  struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
		LockTTL time.Duration `yaml:"lock_ttl" default:"30s"`
		// Retention is the hard expiry of a series after its last write.
		// Zero keeps series until evicted.
		Retention time.Duration `yaml:"retention" default:"720h"`
		Memory  struct {
			MaxSize         int           `yaml:"max_size" default:"10000" validate:"min=1"`
			CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
		} `yaml:"memory"`
		Redis struct {
			Addr         string        `yaml:"addr" default:"localhost:6379" validate:"hostname_port"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db" validate:"min=0"`
			Prefix       string        `yaml:"prefix" default:"quotecache"`
			PoolSize     int           `yaml:"pool_size" default:"10" validate:"min=1"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2" validate:"min=0"`
			DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Calendars struct {
		// File is the static holiday and session data.
		File string `yaml:"file"`
		// Exchanges are built-in exchange codes registered with their
		// default hours when the file does not list them.
		Exchanges []string `yaml:"exchanges"`
		// ReloadSchedule is a cron spec for re-reading File; empty disables it.
		ReloadSchedule string `yaml:"reload_schedule"`
	} `yaml:"calendars"`
	Freshness struct {
		DefaultMaxAge time.Duration `yaml:"default_max_age" default:"1h" validate:"gt=0"`
		// MaxAge overrides DefaultMaxAge per interval code ("1m", "1d", ...).
		MaxAge         map[string]time.Duration `yaml:"max_age" validate:"dive,keys,oneof=1m 2m 5m 15m 30m 60m 90m 1h 1d 5d 1wk,endkeys,gt=0"`
		TriggerOnClose bool                     `yaml:"trigger_on_close" default:"true"`
		WeekMode       string                   `yaml:"week_mode" default:"trading" validate:"oneof=trading calendar calendar-saturday"`
	} `yaml:"freshness"`
	Gaps struct {
		MergeThreshold int `yaml:"merge_threshold" validate:"min=0"`
	} `yaml:"gaps"`
	// Events broadcasts series writes over Kafka so layered instances drop
	// stale memory copies.
	Events struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers" validate:"required_if=Enabled true,dive,hostname_port"`
		Topic        string        `yaml:"topic" default:"quotecache.series" validate:"required"`
		GroupPrefix  string        `yaml:"group_prefix" default:"quotecache" validate:"required"`
		Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
	} `yaml:"events"`
}

var validate = validator.New()

// Default returns a config holding only default values.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Defaults are applied
// first so explicit zero values in the file win.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies defaults, decodes YAML on top and validates.
func Parse(data []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with QUOTECACHE_*
// environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from lookup, normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}

	if v, ok := get("ENVIRONMENT"); ok {
		c.Environment = v
	}
	if v, ok := get("SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSERVER_PORT: %w", EnvPrefix, err)
		}
		c.Server.Port = port
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Logger.Level = v
	}
	if v, ok := get("CACHE_BACKEND"); ok {
		c.Cache.Backend = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := get("CALENDARS_FILE"); ok {
		c.Calendars.File = v
	}
	if v, ok := get("CALENDARS_EXCHANGES"); ok {
		c.Calendars.Exchanges = strings.Split(v, ",")
	}
	if v, ok := get("EVENTS_BROKERS"); ok {
		c.Events.Enabled = true
		c.Events.Brokers = strings.Split(v, ",")
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// MaxAgeFor returns the max age configured for an interval code.
func (c *Config) MaxAgeFor(code string) time.Duration {
	if d, ok := c.Freshness.MaxAge[code]; ok {
		return d
	}
	return c.Freshness.DefaultMaxAge
}
