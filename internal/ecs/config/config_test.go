package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWorldConfig(t *testing.T) {
	t.Run("TC001: a missing file falls back to defaults", func(t *testing.T) {
		cfg := LoadWorldConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
		assert.Equal(t, DefaultWorldConfig(), cfg)
	})

	t.Run("TC002: a present file overrides the fields it sets", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "world.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_entities: 500\nframe_history_size: 16\n"), 0o644))

		cfg := LoadWorldConfig(path)
		assert.Equal(t, 500, cfg.MaxEntities)
		assert.Equal(t, 16, cfg.FrameHistorySize)
		assert.False(t, cfg.EnableDebugMode)
		assert.Equal(t, "info", cfg.LogLevel)
	})
}

func TestWorldConfig_ZerologLevel(t *testing.T) {
	t.Run("TC003: a recognized level resolves directly", func(t *testing.T) {
		cfg := WorldConfig{LogLevel: "debug"}
		assert.Equal(t, zerolog.DebugLevel, cfg.ZerologLevel())
	})

	t.Run("TC004: an empty or unrecognized level falls back to info", func(t *testing.T) {
		assert.Equal(t, zerolog.InfoLevel, (WorldConfig{}).ZerologLevel())
		assert.Equal(t, zerolog.InfoLevel, (WorldConfig{LogLevel: "not-a-level"}).ZerologLevel())
	})
}
