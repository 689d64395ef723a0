package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 15*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, "quotecache", c.Cache.Redis.Prefix)
	assert.Equal(t, "info", c.Logger.Level)
	assert.Equal(t, time.Hour, c.Freshness.DefaultMaxAge)
	assert.True(t, c.Freshness.TriggerOnClose)
	assert.Equal(t, "trading", c.Freshness.WeekMode)
	assert.Zero(t, c.Gaps.MergeThreshold)
	assert.False(t, c.Events.Enabled)
	assert.Equal(t, "quotecache.series", c.Events.Topic)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
server:
  port: 9090
cache:
  backend: layered
  redis:
    addr: redis:6379
freshness:
  trigger_on_close: false
  max_age:
    1d: 30m
    1m: 1m
gaps:
  merge_threshold: 3
`))
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "layered", c.Cache.Backend)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
	assert.False(t, c.Freshness.TriggerOnClose)
	assert.Equal(t, 3, c.Gaps.MergeThreshold)

	assert.Equal(t, 30*time.Minute, c.MaxAgeFor("1d"))
	assert.Equal(t, time.Minute, c.MaxAgeFor("1m"))
	assert.Equal(t, time.Hour, c.MaxAgeFor("1h"), "falls back to default")
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"backend":      "cache: {backend: disk}",
		"port":         "server: {port: 0}",
		"environment":  "environment: moon",
		"interval key": "freshness: {max_age: {3d: 1h}}",
		"max age":      "freshness: {max_age: {1d: 0s}}",
		"threshold":    "gaps: {merge_threshold: -1}",
		"week mode":    "freshness: {week_mode: fortnight}",
		"yaml":         "server: [",
		"events":       "events: {enabled: true}",
		"broker":       "events: {enabled: true, brokers: [kafka]}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: {port: 8081}\n"), 0o644))

	t.Setenv(EnvPrefix+"SERVER_PORT", "9999")
	t.Setenv(EnvPrefix+"CACHE_BACKEND", "redis")
	t.Setenv(EnvPrefix+"CALENDARS_EXCHANGES", "NYQ,LSE")
	t.Setenv(EnvPrefix+"EVENTS_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.True(t, c.Events.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Events.Brokers)
	assert.Equal(t, 9999, c.Server.Port)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, []string{"NYQ", "LSE"}, c.Calendars.Exchanges)

	t.Setenv(EnvPrefix+"SERVER_PORT", "eighty")
	_, err = LoadWithEnv(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShippedConfigParses(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "config/calendars.yaml", c.Calendars.File)
	assert.Contains(t, c.Calendars.Exchanges, "NYQ")
	assert.Equal(t, 4*time.Hour, c.MaxAgeFor("1d"))
}
