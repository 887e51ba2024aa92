package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("MOULDLENS_ADDR", "")
	t.Setenv("MOULDLENS_DB", "")
	t.Setenv("MOULDLENS_CAMERA_ID", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "CAM_01", cfg.DefaultCameraID)
	assert.Equal(t, BindingText, cfg.Extraction.Binding)
	assert.Equal(t, 60, cfg.Extraction.TimeoutSeconds)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Addr = ":9000"
	cfg.DefaultCameraID = "CAM_07"
	cfg.Extraction.Binding = BindingSchema
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", loaded.Addr)
	assert.Equal(t, "CAM_07", loaded.DefaultCameraID)
	assert.Equal(t, BindingSchema, loaded.Extraction.Binding)
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Addr, cfg.Addr)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Run("GEMINI_API_KEY sets extraction key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "test-key")

		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "test-key", cfg.Extraction.APIKey)
	})

	t.Run("MOULDLENS vars override file values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MOULDLENS_ADDR", ":7777")
		t.Setenv("MOULDLENS_CAMERA_ID", "CAM_99")

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, DefaultConfig().Save(path))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":7777", cfg.Addr)
		assert.Equal(t, "CAM_99", cfg.DefaultCameraID)
	})
}

func TestConfig_ValidateBinding(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Extraction.Binding = "grpc"
	require.NoError(t, cfg.Save(path))

	_, err := Load(path)
	assert.Error(t, err)
}
