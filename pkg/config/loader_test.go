package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/pkg/config"
)

type appConfig struct {
	Addr  string        `env:"TEST_HTTP_ADDR" envDefault:":8080"`
	TTL   time.Duration `env:"TEST_TOKEN_TTL" envDefault:"720h"`
	Limit int           `env:"TEST_FALLBACK_LIMIT" envDefault:"1"`
}

type requiredConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET,required"`
}

type fileConfig struct {
	Value string `env:"TEST_FROM_ENV_FILE"`
}

func TestLoad(t *testing.T) {
	config.Reset()
	t.Setenv("TEST_FALLBACK_LIMIT", "3")

	var cfg appConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 720*time.Hour, cfg.TTL)
	assert.Equal(t, 3, cfg.Limit)

	t.Run("cached per type", func(t *testing.T) {
		t.Setenv("TEST_FALLBACK_LIMIT", "7")
		var again appConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, 3, again.Limit)
	})
}

func TestLoad_Errors(t *testing.T) {
	config.Reset()

	var nilCfg *appConfig
	require.ErrorIs(t, config.Load(nilCfg), config.ErrNilPointer)

	var cfg requiredConfig
	require.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoadEnvFiles(t *testing.T) {
	config.Reset()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_FROM_ENV_FILE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEST_FROM_ENV_FILE") })

	require.NoError(t, config.LoadEnvFiles(path))
	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from-file", cfg.Value)

	require.ErrorIs(t, config.LoadEnvFiles(filepath.Join(t.TempDir(), "missing.env")), config.ErrEnvFile)
}
