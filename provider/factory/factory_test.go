package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandlang/strand/config"
	"github.com/strandlang/strand/provider"
	"github.com/strandlang/strand/provider/mock"
)

func keyedConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Providers.Default = config.DefaultProvider
	cfg.Providers.Model = config.DefaultModel
	cfg.Providers.OpenAIKey = "sk-test"
	cfg.Providers.AnthropicKey = "ant-test"
	cfg.Providers.ClaudeCLIPath = "claude"
	return cfg
}

func TestForcedWinsOverDeclarations(t *testing.T) {
	forced := mock.WithResponse("forced")
	f := Forced(forced)

	p, err := f.ForAgent("anthropic", "claude-3-5-haiku-latest")
	require.NoError(t, err)
	assert.Same(t, forced, p)
}

func TestForAgentExplicitProvider(t *testing.T) {
	f := New(keyedConfig())

	p, err := f.ForAgent("anthropic", "")
	require.NoError(t, err)
	assert.Equal(t, provider.NameAnthropic, p.Name())
}

func TestForAgentModelPrefixSelection(t *testing.T) {
	f := New(keyedConfig())

	p, err := f.ForAgent("", "claude-sonnet-4-20250514")
	require.NoError(t, err)
	assert.Equal(t, provider.NameAnthropic, p.Name())

	p, err = f.ForAgent("", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, provider.NameOpenAI, p.Name())
}

func TestForAgentConfiguredDefault(t *testing.T) {
	cfg := keyedConfig()
	cfg.Providers.Default = "mock"
	f := New(cfg)

	p, err := f.ForAgent("", "")
	require.NoError(t, err)
	assert.Equal(t, provider.NameMock, p.Name())
}

func TestForAgentCachesClients(t *testing.T) {
	f := New(keyedConfig())

	a, err := f.ForAgent("openai", "")
	require.NoError(t, err)
	b, err := f.ForAgent("openai", "")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestForAgentUnknownProvider(t *testing.T) {
	f := New(keyedConfig())

	_, err := f.ForAgent("gemini", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider 'gemini'")
	assert.Contains(t, err.Error(), "supported providers: openai, anthropic, claude-code, mock")
}

func TestForAgentMissingKeys(t *testing.T) {
	cfg := keyedConfig()
	cfg.Providers.OpenAIKey = ""
	cfg.Providers.AnthropicKey = ""
	f := New(cfg)

	_, err := f.ForAgent("openai", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is not set")

	_, err = f.ForAgent("anthropic", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY is not set")
}

func TestForAgentMockNeedsNoKeys(t *testing.T) {
	cfg := keyedConfig()
	cfg.Providers.OpenAIKey = ""
	cfg.Providers.AnthropicKey = ""
	f := New(cfg)

	p, err := f.ForAgent("mock", "")
	require.NoError(t, err)
	assert.Equal(t, provider.NameMock, p.Name())
}

func TestDefaultModel(t *testing.T) {
	f := New(keyedConfig())
	assert.Equal(t, config.DefaultModel, f.DefaultModel())

	cfg := keyedConfig()
	cfg.Providers.Model = "gpt-4.1"
	assert.Equal(t, "gpt-4.1", New(cfg).DefaultModel())

	assert.Equal(t, config.DefaultModel, Forced(mock.New()).DefaultModel())
}
