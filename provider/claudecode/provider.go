// Package claudecode implements the provider interface on top of the local
// `claude` CLI, so subscription users can run agents without an API key.
package claudecode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/strandlang/strand/messages"
	"github.com/strandlang/strand/provider"
)

// Provider shells out to the claude CLI in non-interactive mode. The binary
// is looked up lazily on first use so declaring an agent with this provider
// never fails on machines without the CLI.
type Provider struct {
	cliPath string

	lookupOnce sync.Once
	lookupErr  error
	resolved   string
}

// Option configures the client.
type Option func(*Provider)

// WithCLIPath overrides the binary looked up on PATH.
func WithCLIPath(path string) Option {
	return func(p *Provider) { p.cliPath = path }
}

// New creates a client that invokes the `claude` binary.
func New(opts ...Option) *Provider {
	p := &Provider{cliPath: "claude"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return provider.NameClaudeCode }

func (p *Provider) binary() (string, error) {
	p.lookupOnce.Do(func() {
		p.resolved, p.lookupErr = exec.LookPath(p.cliPath)
	})
	if p.lookupErr != nil {
		return "", &provider.Error{
			Kind:     provider.ErrUnavailable,
			Provider: p.Name(),
			Message:  fmt.Sprintf("claude CLI not found on PATH (%s)", p.cliPath),
		}
	}
	return p.resolved, nil
}

func (p *Provider) Complete(ctx context.Context, params provider.CompletionParams) (*provider.Completion, error) {
	if len(params.Tools) > 0 {
		return nil, &provider.Error{
			Kind:     provider.ErrMalformed,
			Provider: p.Name(),
			Message:  "the claude-code provider does not support tool calling; declare the agent without tools or use an API provider",
		}
	}

	bin, err := p.binary()
	if err != nil {
		return nil, err
	}

	args := []string{"-p", "--output-format", "json"}
	if params.Model != "" {
		args = append(args, "--model", params.Model)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader(renderTranscript(params.Conversation))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, &provider.Error{Kind: provider.ErrTimeout, Provider: p.Name(), Err: ctx.Err()}
		}
		return nil, &provider.Error{
			Kind:     provider.ErrUnavailable,
			Provider: p.Name(),
			Message:  fmt.Sprintf("claude CLI failed: %s", strings.TrimSpace(stderr.String())),
			Err:      err,
		}
	}

	out := stdout.Bytes()
	if !gjson.ValidBytes(out) {
		return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Message: "claude CLI produced invalid JSON"}
	}
	result := gjson.GetBytes(out, "result")
	if !result.Exists() {
		return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Message: "claude CLI output has no result field"}
	}
	return &provider.Completion{Content: result.String()}, nil
}

// renderTranscript flattens the conversation to the plain prompt the CLI
// accepts on stdin.
func renderTranscript(conv *messages.Conversation) string {
	var sb strings.Builder
	for _, message := range conv.Messages() {
		switch msg := message.(type) {
		case messages.Instructions:
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		case messages.UserPrompt:
			sb.WriteString("User: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		case messages.AssistantMessage:
			if msg.Content != "" {
				sb.WriteString("Assistant: ")
				sb.WriteString(msg.Content)
				sb.WriteString("\n\n")
			}
		case messages.ToolResponse:
			sb.WriteString("Tool result: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
