package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "2/1/2006 15:04", c.TimestampLayout)
	assert.Equal(t, 150, c.MaxAge)
	assert.Equal(t, 8, c.QueryTimeoutSec)
	assert.Equal(t, "gemini", c.Provider)
	assert.NotNil(t, c.Areas)
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "provider: ollama\nmodel: llama3\nquery_timeout_sec: 3\nareas:\n  bahadurabad: Bahadurabad\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("MEDLOOM_MODEL", "mistral")
	t.Setenv("GEMINI_API_KEY", "g-key")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.Provider)
	assert.Equal(t, "mistral", c.Model, "env overrides file")
	assert.Equal(t, 3, c.QueryTimeoutSec)
	assert.Equal(t, "g-key", c.GeminiAPIKey)
	assert.Equal(t, "Bahadurabad", c.Areas["bahadurabad"])
}

func TestLoadExplicitMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load("")
	require.NoError(t, err)
	c.Model = "gemini-1.5-pro"
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", got.Model)
}
