package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "openai", cfg.Providers.Default)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.Model)
	assert.Equal(t, "claude", cfg.Providers.ClaudeCLIPath)
	assert.Equal(t, 3, cfg.Knowledge.ChunkLimit)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
providers:
  default: anthropic
  model: claude-sonnet-4-20250514
  anthropic_key: file-key
knowledge:
  chunk_limit: 7
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "anthropic", cfg.Providers.Default)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Providers.Model)
	assert.Equal(t, "file-key", cfg.Providers.AnthropicKey)
	assert.Equal(t, 7, cfg.Knowledge.ChunkLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strand.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  model: from-file\n"), 0o644))

	t.Setenv("STRAND_PROVIDERS_MODEL", "from-env")
	t.Setenv("STRAND_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Providers.Model)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConventionalKeyNames(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "ant-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Providers.OpenAIKey)
	assert.Equal(t, "ant-test", cfg.Providers.AnthropicKey)
}

func TestRequireKeys(t *testing.T) {
	cfg := &Config{}

	_, err := cfg.RequireOpenAIKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is not set")

	_, err = cfg.RequireAnthropicKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY is not set")

	cfg.Providers.OpenAIKey = "sk-1"
	cfg.Providers.AnthropicKey = "ant-1"

	key, err := cfg.RequireOpenAIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-1", key)

	key, err = cfg.RequireAnthropicKey()
	require.NoError(t, err)
	assert.Equal(t, "ant-1", key)
}
