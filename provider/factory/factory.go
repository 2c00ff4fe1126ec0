// Package factory constructs model providers from configuration, caching one
// client per backend.
package factory

import (
	"fmt"

	"github.com/openai/openai-go/option"

	"github.com/strandlang/strand/config"
	"github.com/strandlang/strand/internal/registry"
	"github.com/strandlang/strand/provider"
	"github.com/strandlang/strand/provider/anthropic"
	"github.com/strandlang/strand/provider/claudecode"
	"github.com/strandlang/strand/provider/mock"
	"github.com/strandlang/strand/provider/openai"
)

// Factory resolves agents to provider clients. Clients are constructed once
// per backend and shared, so concurrent agent runs reuse connections.
type Factory struct {
	cfg    *config.Config
	forced provider.Provider
	cache  registry.Registry[provider.Provider]
}

// New returns a factory backed by cfg.
func New(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg, cache: registry.New[provider.Provider]()}
}

// Forced returns a factory that hands every agent the given provider,
// regardless of declarations. Used for --mock runs and tests.
func Forced(p provider.Provider) *Factory {
	return &Factory{forced: p, cache: registry.New[provider.Provider]()}
}

// ForAgent picks the backend for an agent declaration: the forced provider
// if set, otherwise the explicit provider name, the model prefix, or the
// configured default, in that order.
func (f *Factory) ForAgent(explicit, model string) (provider.Provider, error) {
	if f.forced != nil {
		return f.forced, nil
	}

	name := explicit
	if name == "" && f.cfg != nil && model == "" {
		name = f.cfg.Providers.Default
	}
	name = provider.Resolve(name, model)

	switch name {
	case provider.NameOpenAI:
		key, err := f.cfg.RequireOpenAIKey()
		if err != nil {
			return nil, err
		}
		p, _ := f.cache.GetOrAdd(name, func() provider.Provider {
			return openai.New(option.WithAPIKey(key))
		})
		return p, nil

	case provider.NameAnthropic:
		key, err := f.cfg.RequireAnthropicKey()
		if err != nil {
			return nil, err
		}
		p, _ := f.cache.GetOrAdd(name, func() provider.Provider {
			return anthropic.New(anthropic.WithAPIKey(key))
		})
		return p, nil

	case provider.NameClaudeCode:
		p, _ := f.cache.GetOrAdd(name, func() provider.Provider {
			return claudecode.New(claudecode.WithCLIPath(f.cfg.Providers.ClaudeCLIPath))
		})
		return p, nil

	case provider.NameMock:
		p, _ := f.cache.GetOrAdd(name, func() provider.Provider {
			return mock.New()
		})
		return p, nil

	default:
		return nil, fmt.Errorf("unknown provider '%s', supported providers: %s", name, provider.SupportedList())
	}
}

// DefaultModel returns the model to use when an agent declares none.
func (f *Factory) DefaultModel() string {
	if f.cfg != nil && f.cfg.Providers.Model != "" {
		return f.cfg.Providers.Model
	}
	return config.DefaultModel
}
