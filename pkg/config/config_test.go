package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pellet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// =============================================================================
// Loading Tests
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Classifier.MultiThreaded)
	assert.True(t, cfg.Classifier.ListenChanges)
	assert.Equal(t, 16, cfg.Classifier.MaxComplementRetries)
	assert.Equal(t, "default", cfg.Storage.SnapshotName)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PELLET_MULTI_THREADED", "false")
	t.Setenv("PELLET_ENTAILMENT_CACHE_TTL", "90")
	t.Setenv("PELLET_DATA_DIR", "/var/lib/pellet")
	t.Setenv("PELLET_IN_MEMORY", "yes")
	t.Setenv("PELLET_KB_FILE", "kb.ofn")
	t.Setenv("PELLET_LOG_LEVEL", "debug")
	t.Setenv("PELLET_LOG_FORMAT", "JSON")
	t.Setenv("PELLET_MAX_COMPLEMENT_RETRIES", "not a number")

	cfg := LoadFromEnv()
	assert.False(t, cfg.Classifier.MultiThreaded)
	assert.Equal(t, 90*time.Second, cfg.Classifier.EntailmentCacheTTL, "bare numbers are seconds")
	assert.Equal(t, "/var/lib/pellet", cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, "kb.ofn", cfg.KnowledgeBase.File)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 16, cfg.Classifier.MaxComplementRetries)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
classifier:
  multi_threaded: false
  entailment_cache_ttl: 5m
storage:
  data_dir: /tmp/snapshots
  sync_writes: true
logging:
  level: warn
memory:
  runtime_limit: 512MB
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.False(t, cfg.Classifier.MultiThreaded)
	assert.True(t, cfg.Classifier.ListenChanges, "absent keys keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Classifier.EntailmentCacheTTL)
	assert.Equal(t, "/tmp/snapshots", cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.SyncWrites)
	assert.Equal(t, "default", cfg.Storage.SnapshotName)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, int64(512*1024*1024), cfg.Memory.RuntimeLimit)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "storage:\n  snapshot_name: from-file\n  data_dir: /from/file\n")
	t.Setenv("PELLET_SNAPSHOT_NAME", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Storage.SnapshotName)
	assert.Equal(t, "/from/file", cfg.Storage.DataDir)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Storage.SnapshotName)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "classifier: [not, a, map]"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"in memory without data dir", func(c *Config) { c.Storage.InMemory = true; c.Storage.DataDir = "" }, true},
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }, false},
		{"negative cache size", func(c *Config) { c.Classifier.EntailmentCacheSize = -1 }, false},
		{"negative cache ttl", func(c *Config) { c.Classifier.EntailmentCacheTTL = -time.Second }, false},
		{"zero retries", func(c *Config) { c.Classifier.MaxComplementRetries = 0 }, false},
		{"empty snapshot name", func(c *Config) { c.Storage.SnapshotName = "" }, false},
		{"no knowledge base", func(c *Config) { c.KnowledgeBase = KnowledgeBaseConfig{} }, false},
		{"file only knowledge base", func(c *Config) { c.KnowledgeBase = KnowledgeBaseConfig{File: "kb.ofn"} }, true},
		{"unknown log level", func(c *Config) { c.Logging.Level = "TRACE" }, false},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"bad metric namespace", func(c *Config) { c.Metrics.Namespace = "pellet-prod" }, false},
		{"metrics without namespace", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Namespace = "" }, false},
		{"negative memory limit", func(c *Config) { c.Memory.RuntimeLimit = -1 }, false},
		{"gc off", func(c *Config) { c.Memory.GCPercent = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestString(t *testing.T) {
	cfg := Default()
	cfg.KnowledgeBase.File = "kb.ofn"
	assert.Equal(t, "Config{MultiThreaded: true, DataDir: ./data, InMemory: false, KB: kb.ofn, Log: INFO/text}", cfg.String())
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pellet.log")
	logger, closeLog, err := NewLogger(LoggingConfig{Level: "WARN", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "nodes", 3)
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"nodes":3`)

	_, _, err = NewLogger(LoggingConfig{Level: "LOUD", Format: "text", Output: "stderr"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, _, err = NewLogger(LoggingConfig{Level: "INFO", Format: "xml", Output: "stdout"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
