package config

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Memory Size Tests
// =============================================================================

func TestParseMemorySize(t *testing.T) {
	const (
		kb = int64(1024)
		mb = kb * 1024
		gb = mb * 1024
	)
	tests := map[string]int64{
		"":          0,
		"0":         0,
		"unlimited": 0,
		"Unlimited": 0,
		"4096":      4096,
		"4096b":     4096,
		"64K":       64 * kb,
		"64kb":      64 * kb,
		"256M":      256 * mb,
		"256MB":     256 * mb,
		" 3gb ":     3 * gb,
		"1T":        1024 * gb,
		"lots":      0,
		"1.5GB":     0,
		"-1GB":      -gb,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseMemorySize(in), "parseMemorySize(%q)", in)
	}
}

func TestFormatMemorySize(t *testing.T) {
	assert.Equal(t, "900 B", FormatMemorySize(900))
	assert.Equal(t, "1.50 KB", FormatMemorySize(1536))
	assert.Equal(t, "256.00 MB", FormatMemorySize(256<<20))
	assert.Equal(t, "2.00 GB", FormatMemorySize(2<<30))
	assert.Equal(t, "1.00 TB", FormatMemorySize(1<<40))
}

// =============================================================================
// Memory Settings Tests
// =============================================================================

func TestMemorySettings(t *testing.T) {
	t.Run("defaults leave the runtime alone", func(t *testing.T) {
		cfg := Default()
		assert.Zero(t, cfg.Memory.RuntimeLimit)
		assert.Equal(t, 100, cfg.Memory.GCPercent)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("PELLET_MEMORY_LIMIT", "1GB")
		t.Setenv("PELLET_GC_PERCENT", "40")
		cfg := LoadFromEnv()
		assert.Equal(t, int64(1<<30), cfg.Memory.RuntimeLimit)
		assert.Equal(t, "1GB", cfg.Memory.RuntimeLimitStr)
		assert.Equal(t, 40, cfg.Memory.GCPercent)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pellet.yaml")
		require.NoError(t, os.WriteFile(path, []byte("memory:\n  runtime_limit: 512MB\n  gc_percent: 25\n"), 0o644))
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, int64(512<<20), cfg.Memory.RuntimeLimit)
		assert.Equal(t, 25, cfg.Memory.GCPercent)
	})

	t.Run("bad gc percent keeps default", func(t *testing.T) {
		t.Setenv("PELLET_GC_PERCENT", "often")
		assert.Equal(t, 100, LoadFromEnv().Memory.GCPercent)
	})

	t.Run("negative limit rejected", func(t *testing.T) {
		t.Setenv("PELLET_MEMORY_LIMIT", "-2MB")
		err := LoadFromEnv().Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestApplyRuntimeMemory(t *testing.T) {
	prev := (&MemoryConfig{GCPercent: 50}).ApplyRuntimeMemory()
	defer debug.SetGCPercent(prev)

	assert.Equal(t, 50, (&MemoryConfig{GCPercent: 75}).ApplyRuntimeMemory())
}
