package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("USER", "ana")
	t.Setenv("CURRICULA_USER", "")
	t.Setenv("DATABASE_CONNECTION_STRING", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.LogMode)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "curricula.db", cfg.DatabasePath)
	assert.Equal(t, int64(16000), cfg.AIMaxTokens)
	assert.Equal(t, "ana", cfg.User)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
output:
  format: yaml
database:
  driver: postgres
  url: postgres://file
ai:
  max-tokens: 2048
user: luis
`)
	t.Setenv("USER", "")
	t.Setenv("CURRICULA_DATABASE_URL", "postgres://env")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.OutputFormat)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
	assert.Equal(t, int64(2048), cfg.AIMaxTokens)
	assert.Equal(t, "sk-test", cfg.AIAPIKey)
	assert.Equal(t, "luis", cfg.User)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "output:\n  format: xml\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "database:\n  driver: mongo\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
