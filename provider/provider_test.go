package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrecedence(t *testing.T) {
	assert.Equal(t, NameAnthropic, Resolve("anthropic", "gpt-4o"))
	assert.Equal(t, NameAnthropic, Resolve("", "claude-sonnet-4-20250514"))
	assert.Equal(t, NameOpenAI, Resolve("", "gpt-4o-mini"))
	assert.Equal(t, NameOpenAI, Resolve("", "o1-preview"))
	assert.Equal(t, NameOpenAI, Resolve("", "o3-mini"))
	assert.Equal(t, NameOpenAI, Resolve("", "some-custom-model"))
	assert.Equal(t, NameOpenAI, Resolve("", ""))
}

func TestKnown(t *testing.T) {
	for _, name := range Supported() {
		assert.True(t, Known(name), name)
	}
	assert.False(t, Known("gemini"))
	assert.False(t, Known(""))
}

func TestSupportedList(t *testing.T) {
	assert.Equal(t, "openai, anthropic, claude-code, mock", SupportedList())
}

func TestErrorRendering(t *testing.T) {
	err := &Error{Kind: ErrRateLimited, Provider: "openai", Message: "too many requests"}
	assert.EqualError(t, err, "openai provider: too many requests")

	wrapped := errors.New("dial tcp: connection refused")
	err = &Error{Kind: ErrUnavailable, Provider: "anthropic", Err: wrapped}
	assert.EqualError(t, err, "anthropic provider: dial tcp: connection refused")
	assert.ErrorIs(t, err, wrapped)

	err = &Error{Kind: ErrTimeout, Provider: "mock"}
	assert.EqualError(t, err, "mock provider: timeout")
}
