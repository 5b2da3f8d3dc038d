package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	assert.False(t, cfg.Database.InMemory)
	assert.Equal(t, "./data", cfg.Database.DataDir)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("GRAPHSTORE_IN_MEMORY", "true")
	t.Setenv("GRAPHSTORE_ADDRESS", "127.0.0.1:9090")
	t.Setenv("GRAPHSTORE_LOG_LEVEL", "debug")
	t.Setenv("GRAPHSTORE_TRANSACTION_TIMEOUT", "2s")

	cfg := LoadFromEnv()
	assert.True(t, cfg.Database.InMemory)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2*time.Second, cfg.Database.TransactionTimeout)
}

func TestValidateRejectsMissingDataDir(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Database.DataDir = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFileMissingIsNotError(t *testing.T) {
	cfg, err := LoadFromFile("/nonexistent/graphstore.yaml")
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.Database.DataDir)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/graphstore.yaml"
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: 127.0.0.1:7000\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Address)
}
