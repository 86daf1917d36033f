package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, "sql", cfg.Search.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.AIService.Timeout)
	assert.Equal(t, 50, cfg.RateLimit.ChatPerMinute)
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "4000"
openai:
  api_key: from-file
  model: gpt-3.5-turbo
cache:
  ttl: 10m
`), 0o600))
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("AI_SERVICE_BASE_URL", "http://ai:8001")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "http://ai:8001", cfg.AIService.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
