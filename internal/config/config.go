// Package config loads legiurls settings from defaults, an optional config
// file, .env and LEGIURLS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pfczx/legiurls/internal/cache"
	"github.com/pfczx/legiurls/internal/canonical"
	"github.com/pfczx/legiurls/internal/fetcher"
	"github.com/pfczx/legiurls/internal/logger"
)

// EnvPrefix prefixes every environment variable, e.g. LEGIURLS_CACHE_ENABLED.
const EnvPrefix = "LEGIURLS"

var (
	ErrInvalidRetries  = errors.New("fetch.retries must not be negative")
	ErrInvalidMaxHops  = errors.New("canonical.max_hops must be positive")
	ErrInvalidWorkers  = errors.New("batch.workers must be positive")
	ErrInvalidLogLevel = errors.New("invalid log.level")
)

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Version int    `mapstructure:"version"`
}

type FetchConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	Retries   int           `mapstructure:"retries"`
	Backoff   time.Duration `mapstructure:"backoff"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type CanonicalConfig struct {
	MaxHops int `mapstructure:"max_hops"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// Config is the whole application configuration.
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Canonical CanonicalConfig `mapstructure:"canonical"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	fetch := fetcher.DefaultConfig()

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.dir", cache.DefaultDir)
	v.SetDefault("cache.version", cache.CurrentVersion)
	v.SetDefault("fetch.user_agent", fetch.UserAgent)
	v.SetDefault("fetch.retries", fetch.Retries)
	v.SetDefault("fetch.backoff", fetch.Backoff)
	v.SetDefault("fetch.timeout", fetch.Timeout)
	v.SetDefault("canonical.max_hops", canonical.DefaultMaxHops)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.path", "links.db")
	v.SetDefault("batch.workers", 4)
}

// NewViper returns a viper instance wired for env lookups and the config file
// search path. An explicit cfgFile replaces the search.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	SetDefaults(v)
	return v
}

// Load reads .env, the config file if any, and the environment into v.
// A missing config file is fine; an explicit one that cannot be read is not.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the components cannot work with.
func (c *Config) Validate() error {
	if c.Fetch.Retries < 0 {
		return ErrInvalidRetries
	}
	if c.Canonical.MaxHops <= 0 {
		return ErrInvalidMaxHops
	}
	if c.Batch.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	return nil
}

// FetcherConfig converts the fetch section.
func (c *Config) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		UserAgent: c.Fetch.UserAgent,
		Retries:   c.Fetch.Retries,
		Backoff:   c.Fetch.Backoff,
		Timeout:   c.Fetch.Timeout,
	}
}

// LoggerConfig converts the log section.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Encoding: c.Log.Format}
}

// CacheStore returns the cache store, or nil when caching is disabled.
func (c *Config) CacheStore() *cache.Store {
	if !c.Cache.Enabled {
		return nil
	}
	return cache.New(c.Cache.Dir, cache.WithVersion(c.Cache.Version))
}
