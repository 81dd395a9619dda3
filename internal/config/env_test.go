package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvFrom, "csv")
	t.Setenv(EnvTo, ".bak")
	t.Setenv(EnvOutput, "/env/out")
	t.Setenv(EnvCaseInsensitive, "true")
	t.Setenv(EnvFailFast, "1")
	t.Setenv(EnvRenameScope, "all")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogDir, "")
	t.Setenv(EnvHistoryDB, "/env/history.db")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "csv", cfg.From)
	assert.Equal(t, ".bak", cfg.To)
	assert.Equal(t, "/env/out", cfg.Output)
	assert.True(t, cfg.CaseInsensitive)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, "all", cfg.RenameScope)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, filepath.Join(".flatten", "logs"), cfg.LogDir, "empty variable is ignored")
	assert.Equal(t, "/env/history.db", cfg.History.DBPath)
}

func TestApplyEnv_InvalidBool(t *testing.T) {
	t.Setenv(EnvFailFast, "sometimes")
	err := DefaultConfig().ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvFailFast)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FLATTEN_TEST_DOTENV=from-file\nFLATTEN_TEST_PRESET=from-file\n"), 0o644))

	t.Setenv("FLATTEN_TEST_PRESET", "from-env")
	t.Cleanup(func() { os.Unsetenv("FLATTEN_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("FLATTEN_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("FLATTEN_TEST_PRESET"), "existing variables win")
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".flatten"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".flatten", "config.yaml"), []byte("from: log\nto: txt\n"), 0o644))
	t.Setenv(EnvTo, "md")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "log", cfg.From, "file beats defaults")
	assert.Equal(t, "md", cfg.To, "env beats file")
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
