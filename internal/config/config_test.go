package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/ratelimit"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir(), "config")
	require.NoError(t, err)

	assert.Equal(t, 8095, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "faveit", cfg.Cache.Prefix)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 100*time.Millisecond, cfg.Cache.OpTimeout)
	assert.Equal(t, int64(60), cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 20, cfg.Search.ItemsPerPage)
	assert.Equal(t, 3*time.Second, cfg.Search.ProviderTimeout)
	assert.True(t, cfg.Search.Singleflight)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Index.Addresses)
	assert.Equal(t, "catalog", cfg.Providers.Catalog.Name)
	assert.False(t, cfg.Providers.Catalog.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "faveit-search.db", cfg.Database.FilePath)
	assert.Equal(t, "redis", cfg.PubSub.Driver)
	assert.Equal(t, 3*time.Second, cfg.PubSub.Redis.ReadTimeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := `
cache:
  driver: memory
  ttl: 90s
rate_limit:
  actions:
    create_post:
      limit: 10
      window: 1h
providers:
  music:
    enabled: true
    base_url: https://music.example
    client_id: id
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	t.Setenv("RATE_LIMIT_LIMIT", "5")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadFrom(dir, "config")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, int64(5), cfg.RateLimit.Limit)
	require.Contains(t, cfg.RateLimit.Actions, "create_post")
	assert.Equal(t, ActionConfig{Limit: 10, Window: time.Hour}, cfg.RateLimit.Actions["create_post"])
	assert.True(t, cfg.Providers.Music.Enabled)
	assert.Equal(t, "https://music.example", cfg.Providers.Music.BaseURL)
	assert.Equal(t, "music", cfg.Providers.Music.Name)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{name: "cache", env: "CACHE_DRIVER", val: "memcached"},
		{name: "rate limit", env: "RATE_LIMIT_DRIVER", val: "etcd"},
		{name: "index", env: "INDEX_DRIVER", val: "solr"},
		{name: "analytics", env: "ANALYTICS_DRIVER", val: "s3"},
		{name: "limit", env: "RATE_LIMIT_LIMIT", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := LoadFrom(t.TempDir(), "config")
			assert.Error(t, err)
		})
	}
}

func TestRateLimitPolicies(t *testing.T) {
	c := RateLimitConfig{
		Limit:  30,
		Window: time.Minute,
		Actions: map[string]ActionConfig{
			ratelimit.PolicyCreatePost: {Limit: 5, Window: time.Hour},
			"export":                   {Window: time.Hour},
		},
	}

	got := make(map[string]ratelimit.Policy)
	for _, p := range c.Policies() {
		got[p.Name] = p
	}

	assert.Equal(t, ratelimit.Policy{Name: ratelimit.PolicySearch, Limit: 30, Window: time.Minute}, got[ratelimit.PolicySearch])
	assert.Equal(t, ratelimit.Policy{Name: ratelimit.PolicyCreatePost, Limit: 5, Window: time.Hour}, got[ratelimit.PolicyCreatePost])
	assert.Equal(t, ratelimit.Policy{Name: "export", Limit: 30, Window: time.Hour}, got["export"])

	r, err := ratelimit.NewRegistry(ratelimit.NewMemoryBackend(nil), c.Policies())
	require.NoError(t, err)
	l, ok := r.Limiter(ratelimit.PolicyCreatePost)
	require.True(t, ok)
	assert.Equal(t, int64(5), l.Policy().Limit, "overrides win over the built-in entry")
}
