package config

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Empty(t, cfg.APIKey)
	assert.False(t, cfg.HasAPIKey())
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 50, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateInterval)
	assert.Equal(t, 10*time.Second, cfg.CacheTTL)
	assert.Equal(t, 10000, cfg.CacheCapacity)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"STOREFRONT_API_URL":         "https://staging.example.com",
		"STOREFRONT_API_KEY":         "secret-key",
		"STOREFRONT_REQUEST_TIMEOUT": "750ms",
		"STOREFRONT_RATE_LIMIT":      "5",
		"STOREFRONT_RATE_INTERVAL":   "10s",
		"STOREFRONT_CACHE_TTL":       "30s",
		"STOREFRONT_CACHE_CAPACITY":  "500",
		"STOREFRONT_LOG_LEVEL":       "DEBUG",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com", cfg.APIURL)
	assert.True(t, cfg.HasAPIKey())
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.RateInterval)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 500, cfg.CacheCapacity)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad url":       {"STOREFRONT_API_URL": "not a url"},
		"zero limit":    {"STOREFRONT_RATE_LIMIT": "0"},
		"bad duration":  {"STOREFRONT_CACHE_TTL": "soon"},
		"negative ttl":  {"STOREFRONT_CACHE_TTL": "-1s"},
		"unknown level": {"STOREFRONT_LOG_LEVEL": "loud"},
		"not a number":  {"STOREFRONT_RATE_LIMIT": "many"},
		"zero capacity": {"STOREFRONT_CACHE_CAPACITY": "0"},
		"zero timeout":  {"STOREFRONT_REQUEST_TIMEOUT": "0s"},
		"zero interval": {"STOREFRONT_RATE_INTERVAL": "0s"},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadFrom(vars)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "https://env.example.com")
	t.Setenv("STOREFRONT_RATE_LIMIT", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.APIURL)
	assert.Equal(t, 7, cfg.RateLimit)
	assert.Equal(t, os.Getenv("STOREFRONT_API_KEY"), cfg.APIKey)
}

func TestMarshalZerologObject_OmitsAPIKey(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"STOREFRONT_API_KEY": "super-secret"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().EmbedObject(cfg).Msg("config loaded")

	out := buf.String()
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, `"api_key_set":true`)
	assert.Contains(t, out, `"api_url":"https://fakestoreapi.com"`)
}
