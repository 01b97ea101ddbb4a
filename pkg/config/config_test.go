package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 30*time.Second, c.Cache.TTL)
	assert.Equal(t, 60*time.Second, c.Refresh.Interval)
	assert.Equal(t, "postgrest", c.Source.Backend)
	assert.Equal(t, "dashboard.snapshots", c.Kafka.SnapshotTopic)
	assert.True(t, c.Server.CORS)
	assert.Equal(t, 3*time.Second, c.Server.HealthTimeout)
	assert.Equal(t, int64(65536), c.Server.BodyLimit)
	assert.Equal(t, "symbiotic", c.Cache.Redis.Prefix)
	assert.Equal(t, time.Minute, c.Cache.MemoryCleanup)
	assert.Equal(t, 1048576, c.Kafka.Producer.BatchBytes)
	assert.False(t, c.Kafka.Producer.Async)
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
server:
  port: 9090
cache:
  ttl: 45s
source:
  supabase_url: https://x.supabase.co
  supabase_key: anon
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 45*time.Second, c.Cache.TTL)
	assert.Equal(t, 15*time.Minute, c.Cache.StaleAge, "untouched default survives")
	assert.NoError(t, c.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	c.ApplyEnv(env(map[string]string{
		"DATABASE_URL":    "postgres://u:p@db/app",
		"REDIS_ADDR":      "redis:6379",
		"KAFKA_BROKERS":   "k1:9092, k2:9092",
		"CLICKHOUSE_HOST": "ch",
		"PORT":            "7000",
	}))

	assert.Equal(t, "postgres", c.Source.Backend)
	assert.Equal(t, "layered", c.Cache.Backend)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.True(t, c.Correlation.Historical)
	assert.Equal(t, 7000, c.Server.Port)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	c := Default()
	assert.ErrorContains(t, c.Validate(), "supabase_url")

	c.ApplyEnv(env(map[string]string{"SUPABASE_URL": "https://x.supabase.co", "SUPABASE_KEY": "k"}))
	require.NoError(t, c.Validate())

	c.Kafka.Enabled = true
	c.Correlation.Timeframe = "2h"
	err := c.Validate()
	assert.ErrorContains(t, err, "kafka.brokers")
	assert.ErrorContains(t, err, "timeframe")
}
