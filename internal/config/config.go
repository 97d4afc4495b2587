// Package config handles application configuration from environment variables
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"
)

// DefaultAPIURL is the public demo backend used when no URL is configured.
const DefaultAPIURL = "https://fakestoreapi.com"

// Config holds all application configuration
type Config struct {
	APIURL         string        `env:"STOREFRONT_API_URL" envDefault:"https://fakestoreapi.com"`
	APIKey         string        `env:"STOREFRONT_API_KEY"`
	RequestTimeout time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"5s"`
	RateLimit      int           `env:"STOREFRONT_RATE_LIMIT" envDefault:"50"`
	RateInterval   time.Duration `env:"STOREFRONT_RATE_INTERVAL" envDefault:"1m"`
	CacheTTL       time.Duration `env:"STOREFRONT_CACHE_TTL" envDefault:"10s"`
	CacheCapacity  int           `env:"STOREFRONT_CACHE_CAPACITY" envDefault:"10000"`
	LogLevel       string        `env:"STOREFRONT_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration values are usable
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.RequestTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RateLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.RateInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.CacheTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.CacheCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.LogLevel, validation.By(validLogLevel)),
	)
}

// HasAPIKey returns true if an API key is configured
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// MarshalZerologObject logs the configuration without the API key.
func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("api_url", c.APIURL).
		Bool("api_key_set", c.HasAPIKey()).
		Dur("request_timeout", c.RequestTimeout).
		Int("rate_limit", c.RateLimit).
		Dur("rate_interval", c.RateInterval).
		Dur("cache_ttl", c.CacheTTL).
		Int("cache_capacity", c.CacheCapacity).
		Str("log_level", c.LogLevel)
}

func validLogLevel(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(s)); err != nil {
		return errors.Errorf("unknown log level %q", s)
	}
	return nil
}
