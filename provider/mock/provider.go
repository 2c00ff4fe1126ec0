// Package mock implements a deterministic provider for tests and the --mock
// CLI mode. It needs no credentials and never touches the network.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/strandlang/strand/provider"
)

const defaultResponse = "Hello! I'm a friendly assistant. How can I help you today?"

// Turn is one scripted completion. Err short-circuits the turn with that
// error; Delay simulates latency before returning.
type Turn struct {
	Completion provider.Completion
	Err        error
	Delay      time.Duration
}

// Provider replays a script of turns, then repeats its final turn. With no
// script it answers every request with a fixed response.
type Provider struct {
	mu    sync.Mutex
	turns []Turn
	next  int
	calls int
}

// New returns a mock that always answers with the default response.
func New() *Provider {
	return WithResponse(defaultResponse)
}

// WithResponse returns a mock that always answers with content.
func WithResponse(content string) *Provider {
	return &Provider{turns: []Turn{{Completion: provider.Completion{Content: content}}}}
}

// WithScript returns a mock that replays turns in order, repeating the last
// one once the script is exhausted.
func WithScript(turns ...Turn) *Provider {
	return &Provider{turns: turns}
}

func (p *Provider) Name() string { return provider.NameMock }

// Calls reports how many completions were requested.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Provider) Complete(ctx context.Context, _ provider.CompletionParams) (*provider.Completion, error) {
	p.mu.Lock()
	p.calls++
	if len(p.turns) == 0 {
		p.mu.Unlock()
		return &provider.Completion{Content: defaultResponse}, nil
	}
	turn := p.turns[p.next]
	if p.next < len(p.turns)-1 {
		p.next++
	}
	p.mu.Unlock()

	if turn.Delay > 0 {
		select {
		case <-time.After(turn.Delay):
		case <-ctx.Done():
			return nil, &provider.Error{Kind: provider.ErrTimeout, Provider: provider.NameMock, Err: ctx.Err()}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &provider.Error{Kind: provider.ErrTimeout, Provider: provider.NameMock, Err: err}
	}
	if turn.Err != nil {
		return nil, turn.Err
	}
	completion := turn.Completion
	return &completion, nil
}
