// Package config loads runtime configuration from defaults, an optional YAML
// file, and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full runtime configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Providers ProviderConfig  `koanf:"providers"`
	Knowledge KnowledgeConfig `koanf:"knowledge"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// ProviderConfig selects and authenticates model backends.
type ProviderConfig struct {
	Default       string `koanf:"default"` // used when an agent names neither provider nor model
	Model         string `koanf:"model"`   // default model identifier
	OpenAIKey     string `koanf:"openai_key"`
	AnthropicKey  string `koanf:"anthropic_key"`
	ClaudeCLIPath string `koanf:"claude_cli_path"`
}

// KnowledgeConfig tunes knowledge-base retrieval defaults.
type KnowledgeConfig struct {
	ChunkLimit int `koanf:"chunk_limit"`
}

const (
	DefaultModel    = "gpt-4o-mini"
	DefaultProvider = "openai"
)

// Load builds a Config. A .env file in the working directory is honored
// before the environment is read; path may be empty to skip file loading.
// STRAND_-prefixed variables override file values (STRAND_PROVIDERS_MODEL ->
// providers.model), and the conventional OPENAI_API_KEY / ANTHROPIC_API_KEY
// names are recognized as well.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("providers.default", DefaultProvider)
	k.Set("providers.model", DefaultModel)
	k.Set("providers.claude_cli_path", "claude")
	k.Set("knowledge.chunk_limit", 3)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("STRAND_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "STRAND_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.Providers.OpenAIKey == "" {
		cfg.Providers.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Providers.AnthropicKey == "" {
		cfg.Providers.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// RequireOpenAIKey returns the OpenAI key or a setup hint.
func (c *Config) RequireOpenAIKey() (string, error) {
	if c.Providers.OpenAIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY is not set; export it or add providers.openai_key to the config file")
	}
	return c.Providers.OpenAIKey, nil
}

// RequireAnthropicKey returns the Anthropic key or a setup hint.
func (c *Config) RequireAnthropicKey() (string, error) {
	if c.Providers.AnthropicKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY is not set; export it or add providers.anthropic_key to the config file")
	}
	return c.Providers.AnthropicKey, nil
}
