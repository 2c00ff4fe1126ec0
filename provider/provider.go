package provider

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/strandlang/strand/messages"
	"github.com/strandlang/strand/tool"
)

// Provider is a chat completion backend. Implementations map the transcript
// and tool declarations to their wire format and return a single completed
// turn.
type Provider interface {
	// Name reports which backend this is, e.g. "openai".
	Name() string

	// Complete performs one model turn. Cancellation and deadlines arrive via
	// ctx.
	Complete(ctx context.Context, params CompletionParams) (*Completion, error)
}

// CompletionParams encapsulates all parameters for one completion request.
type CompletionParams struct {
	// RunID identifies the surrounding agent run for logging.
	RunID uuid.UUID

	// Model is the backend-specific model identifier.
	Model string

	// Conversation is the transcript so far, opened with the agent's system
	// instructions.
	Conversation *messages.Conversation

	// Tools the model may call this turn.
	Tools []tool.Definition

	// Prevents unkeyed literals
	_ struct{}
}

// Completion is one finished model turn: assistant text, tool calls, or both.
type Completion struct {
	Content   string
	ToolCalls []messages.ToolCall
}

// Backend names in the closed set of supported providers.
const (
	NameOpenAI     = "openai"
	NameAnthropic  = "anthropic"
	NameClaudeCode = "claude-code"
	NameMock       = "mock"
)

var supported = []string{NameOpenAI, NameAnthropic, NameClaudeCode, NameMock}

// Known reports whether name is a supported provider.
func Known(name string) bool {
	for _, s := range supported {
		if name == s {
			return true
		}
	}
	return false
}

// Supported returns the provider names agents may declare.
func Supported() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// SupportedList renders the supported names for error messages.
func SupportedList() string {
	return strings.Join(supported, ", ")
}

// Resolve picks the backend for an agent: an explicit provider wins, then
// the model name's prefix, then openai.
func Resolve(explicit, model string) string {
	if explicit != "" {
		return explicit
	}
	switch {
	case strings.HasPrefix(model, "claude-"):
		return NameAnthropic
	case strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"):
		return NameOpenAI
	default:
		return NameOpenAI
	}
}
