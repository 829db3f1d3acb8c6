package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"API_PORT", "WORKER_PORT", "DB_URL", "AMQP_URL", "LOG_LEVEL", "LOG_FORMAT",
	"COMPILE_CACHE_SIZE", "COMPILE_TIMEOUT_SEC", "WORKER_PREFETCH",
	"REAPER_SCHEDULE", "COMPILE_STALE_SEC",
}

// clearEnv сбрасывает переменные на время теста.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIPort, cfg.APIPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, ":8082", cfg.WorkerAddr())
	assert.Equal(t, DefaultDBURL, cfg.DBURL)
	assert.Equal(t, DefaultAMQPURL, cfg.AMQPURL)
	assert.Equal(t, DefaultCompileCacheSize, cfg.CompileCacheSize)
	assert.Equal(t, DefaultCompileTimeout, cfg.CompileTimeout)
	assert.Equal(t, DefaultWorkerPrefetch, cfg.WorkerPrefetch)
	assert.Equal(t, DefaultReaperSchedule, cfg.ReaperSchedule)
	assert.Equal(t, DefaultStaleAfter, cfg.StaleAfter)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_PORT", ":9090")
	t.Setenv("WORKER_PORT", "9091")
	t.Setenv("COMPILE_CACHE_SIZE", "0")
	t.Setenv("COMPILE_TIMEOUT_SEC", "3")
	t.Setenv("WORKER_PREFETCH", "16")
	t.Setenv("REAPER_SCHEDULE", "off")
	t.Setenv("COMPILE_STALE_SEC", "60")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.APIPort)
	assert.Equal(t, ":9091", cfg.WorkerAddr())
	assert.Equal(t, 0, cfg.CompileCacheSize)
	assert.Equal(t, 3*time.Second, cfg.CompileTimeout)
	assert.Equal(t, 16, cfg.WorkerPrefetch)
	assert.Empty(t, cfg.ReaperSchedule)
	assert.Equal(t, time.Minute, cfg.StaleAfter)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"COMPILE_CACHE_SIZE", "many"},
		{"COMPILE_CACHE_SIZE", "-1"},
		{"COMPILE_TIMEOUT_SEC", "0"},
		{"WORKER_PREFETCH", "x"},
		{"COMPILE_STALE_SEC", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	// godotenv не перезаписывает заданные переменные, поэтому снимаем их
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("API_PORT=7070\nCOMPILE_TIMEOUT_SEC=5\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.APIPort)
	assert.Equal(t, 5*time.Second, cfg.CompileTimeout)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
