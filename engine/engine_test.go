package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/interp"
	"github.com/strandlang/strand/kb"
	"github.com/strandlang/strand/messages"
	"github.com/strandlang/strand/provider"
	"github.com/strandlang/strand/provider/factory"
	"github.com/strandlang/strand/provider/mock"
	"github.com/strandlang/strand/tool"
)

// capture records the params of every completion so tests can inspect the
// conversation the engine assembled.
type capture struct {
	inner  provider.Provider
	params []provider.CompletionParams
}

func (c *capture) Name() string { return c.inner.Name() }

func (c *capture) Complete(ctx context.Context, params provider.CompletionParams) (*provider.Completion, error) {
	c.params = append(c.params, params)
	return c.inner.Complete(ctx, params)
}

func testAgent() *interp.AgentHandle {
	return &interp.AgentHandle{
		Name:          "helper",
		SystemPrompt:  "You are a helper.",
		MaxSteps:      interp.DefaultMaxSteps,
		OutputRetries: interp.DefaultOutputRetries,
	}
}

func newEngine(p provider.Provider, tools *tool.Registry) *Engine {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	return New(factory.Forced(p), tools)
}

func agentErr(t *testing.T, err error) *AgentError {
	t.Helper()
	var aerr *AgentError
	require.ErrorAs(t, err, &aerr)
	return aerr
}

func TestRunAgentPlainText(t *testing.T) {
	p := mock.WithResponse("all good")
	eng := newEngine(p, nil)

	got, err := eng.RunAgent(context.Background(), testAgent(), "", false)
	require.NoError(t, err)
	assert.Equal(t, interp.String("all good"), got)
	assert.Equal(t, 1, p.Calls())
}

func TestRunAgentDefaultUserPrompt(t *testing.T) {
	cap := &capture{inner: mock.New()}
	eng := newEngine(cap, nil)

	_, err := eng.RunAgent(context.Background(), testAgent(), "", false)
	require.NoError(t, err)

	require.Len(t, cap.params, 1)
	msgs := cap.params[0].Conversation.Messages()
	require.GreaterOrEqual(t, len(msgs), 2)
	prompt, ok := msgs[1].(messages.UserPrompt)
	require.True(t, ok)
	assert.Equal(t, "Hello!", prompt.Content)
}

func TestRunAgentInputOverridesBoundPrompt(t *testing.T) {
	cap := &capture{inner: mock.New()}
	eng := newEngine(cap, nil)

	agent := testAgent()
	agent.UserPrompt = "bound prompt"
	_, err := eng.RunAgent(context.Background(), agent, "explicit input", true)
	require.NoError(t, err)

	prompt := cap.params[0].Conversation.Messages()[1].(messages.UserPrompt)
	assert.Equal(t, "explicit input", prompt.Content)
}

func TestRunAgentStructuredRetrySucceeds(t *testing.T) {
	p := mock.WithScript(
		mock.Turn{Completion: provider.Completion{Content: "sorry, no JSON here"}},
		mock.Turn{Completion: provider.Completion{Content: `{"answer": "42"}`}},
	)
	eng := newEngine(p, nil)

	agent := testAgent()
	agent.OutputFields = []ast.StructField{
		{Name: "answer", Type: &ast.TypeRef{Kind: ast.TypeString}},
	}
	agent.OutputRetries = 2

	got, err := eng.RunAgent(context.Background(), agent, "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Calls())

	obj, ok := got.(*interp.Object)
	require.True(t, ok)
	answer, ok := obj.Get("answer")
	require.True(t, ok)
	assert.Equal(t, interp.String("42"), answer)
}

func TestRunAgentStructuredRetryPromptAdded(t *testing.T) {
	cap := &capture{inner: mock.WithScript(
		mock.Turn{Completion: provider.Completion{Content: "nope"}},
		mock.Turn{Completion: provider.Completion{Content: `{"answer": "ok"}`}},
	)}
	eng := newEngine(cap, nil)

	agent := testAgent()
	agent.OutputFields = []ast.StructField{
		{Name: "answer", Type: &ast.TypeRef{Kind: ast.TypeString}},
	}

	_, err := eng.RunAgent(context.Background(), agent, "", false)
	require.NoError(t, err)

	require.Len(t, cap.params, 2)
	// conversation order: system, user, assistant, retry, assistant
	msgs := cap.params[1].Conversation.Messages()
	require.Len(t, msgs, 5)
	retry, ok := msgs[3].(messages.UserPrompt)
	require.True(t, ok)
	assert.Contains(t, retry.Content, "did not match the required schema")
	assert.Contains(t, retry.Content, "no JSON object")
}

func TestRunAgentStructuredExhaustsRetries(t *testing.T) {
	p := mock.WithResponse("never valid")
	eng := newEngine(p, nil)

	agent := testAgent()
	agent.OutputFields = []ast.StructField{
		{Name: "answer", Type: &ast.TypeRef{Kind: ast.TypeString}},
	}
	agent.OutputRetries = 2

	_, err := eng.RunAgent(context.Background(), agent, "", false)
	aerr := agentErr(t, err)
	assert.Equal(t, ErrOutputValidation, aerr.Kind)
	assert.Equal(t, 3, aerr.Attempts)
	assert.Equal(t, 3, p.Calls())
	assert.Contains(t, err.Error(), "(after 3 attempts)")
}

func TestRunAgentToolLoop(t *testing.T) {
	tools := tool.NewRegistry()
	var gotArgs string
	tools.Add(tool.Definition{
		Name:        "shout",
		Description: "Uppercases text",
		Execute: func(_ context.Context, args []byte) (string, error) {
			gotArgs = string(args)
			return "HELLO", nil
		},
	})

	cap := &capture{inner: mock.WithScript(
		mock.Turn{Completion: provider.Completion{
			ToolCalls: []messages.ToolCall{{ID: "c1", Name: "shout", Arguments: `{"text":"hello"}`}},
		}},
		mock.Turn{Completion: provider.Completion{Content: "the tool said HELLO"}},
	)}
	eng := newEngine(cap, tools)

	agent := testAgent()
	agent.Tools = []string{"shout"}

	got, err := eng.RunAgent(context.Background(), agent, "", false)
	require.NoError(t, err)
	assert.Equal(t, interp.String("the tool said HELLO"), got)
	assert.JSONEq(t, `{"text":"hello"}`, gotArgs)

	msgs := cap.params[1].Conversation.Messages()
	resp, ok := msgs[len(msgs)-2].(messages.ToolResponse)
	require.True(t, ok)
	assert.Equal(t, "c1", resp.ToolCallID)
	assert.Equal(t, "HELLO", resp.Content)
	assert.False(t, resp.IsError)
}

func TestRunAgentStepLimit(t *testing.T) {
	tools := tool.NewRegistry()
	tools.Add(tool.Definition{
		Name: "loop",
		Execute: func(context.Context, []byte) (string, error) {
			return "again", nil
		},
	})

	p := mock.WithScript(mock.Turn{Completion: provider.Completion{
		ToolCalls: []messages.ToolCall{{ID: "c1", Name: "loop", Arguments: `{}`}},
	}})
	eng := newEngine(p, tools)

	agent := testAgent()
	agent.Tools = []string{"loop"}
	agent.MaxSteps = 2

	_, err := eng.RunAgent(context.Background(), agent, "", false)
	aerr := agentErr(t, err)
	assert.Equal(t, ErrStepLimit, aerr.Kind)
	assert.Contains(t, aerr.Message, "no final answer after 2 steps")
	assert.Equal(t, 2, p.Calls())
}

func TestRunAgentUnknownToolDeclaration(t *testing.T) {
	p := mock.New()
	eng := newEngine(p, nil)

	agent := testAgent()
	agent.Tools = []string{"ghost"}

	_, err := eng.RunAgent(context.Background(), agent, "", false)
	aerr := agentErr(t, err)
	assert.Equal(t, ErrUnknownTool, aerr.Kind)
	assert.Contains(t, aerr.Message, `unknown tool "ghost"`)
	assert.Zero(t, p.Calls())
}

func TestRunAgentModelCallsUndeclaredTool(t *testing.T) {
	cap := &capture{inner: mock.WithScript(
		mock.Turn{Completion: provider.Completion{
			ToolCalls: []messages.ToolCall{{ID: "c1", Name: "ghost", Arguments: `{}`}},
		}},
		mock.Turn{Completion: provider.Completion{Content: "recovered"}},
	)}
	eng := newEngine(cap, nil)

	got, err := eng.RunAgent(context.Background(), testAgent(), "", false)
	require.NoError(t, err)
	assert.Equal(t, interp.String("recovered"), got)

	msgs := cap.params[1].Conversation.Messages()
	resp := msgs[len(msgs)-2].(messages.ToolResponse)
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, `tool "ghost" is not available to this agent`)
}

func TestRunAgentToolArgumentErrorIsFatal(t *testing.T) {
	tools := tool.NewRegistry()
	tools.Add(tool.Definition{
		Name: "strict",
		Execute: func(context.Context, []byte) (string, error) {
			return "", &tool.ArgumentError{Tool: "strict", Detail: "missing required parameter 'text'"}
		},
	})

	p := mock.WithScript(mock.Turn{Completion: provider.Completion{
		ToolCalls: []messages.ToolCall{{ID: "c1", Name: "strict", Arguments: `{}`}},
	}})
	eng := newEngine(p, tools)

	agent := testAgent()
	agent.Tools = []string{"strict"}

	_, err := eng.RunAgent(context.Background(), agent, "", false)
	aerr := agentErr(t, err)
	assert.Equal(t, ErrToolArgument, aerr.Kind)
	assert.Equal(t, 1, p.Calls())
}

func TestRunAgentToolExecutionErrorFedBack(t *testing.T) {
	tools := tool.NewRegistry()
	tools.Add(tool.Definition{
		Name: "flaky",
		Execute: func(context.Context, []byte) (string, error) {
			return "", errors.New("connection refused")
		},
	})

	cap := &capture{inner: mock.WithScript(
		mock.Turn{Completion: provider.Completion{
			ToolCalls: []messages.ToolCall{{ID: "c1", Name: "flaky", Arguments: `{}`}},
		}},
		mock.Turn{Completion: provider.Completion{Content: "the tool is down"}},
	)}
	eng := newEngine(cap, tools)

	agent := testAgent()
	agent.Tools = []string{"flaky"}

	got, err := eng.RunAgent(context.Background(), agent, "", false)
	require.NoError(t, err)
	assert.Equal(t, interp.String("the tool is down"), got)

	msgs := cap.params[1].Conversation.Messages()
	resp := msgs[len(msgs)-2].(messages.ToolResponse)
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "connection refused")
}

func TestRunAgentKnowledgeInjection(t *testing.T) {
	base := kb.NewMock()
	base.Add("Invoices are due in 30 days.", "billing.md", 0.9)
	base.Add("Support hours are 9 to 5.", "support.md", 0.7)

	cap := &capture{inner: mock.New()}
	eng := newEngine(cap, nil)

	agent := testAgent()
	agent.Knowledge = &interp.KnowledgeConfig{Source: base, ChunkLimit: 3}

	_, err := eng.RunAgent(context.Background(), agent, "when are invoices due?", true)
	require.NoError(t, err)

	system := cap.params[0].Conversation.Messages()[0].(messages.Instructions).Content
	assert.Contains(t, system, "You are a helper.")
	assert.Contains(t, system, "Relevant context from the knowledge base:")
	assert.Contains(t, system, "--- billing.md ---")
	assert.Contains(t, system, "Invoices are due in 30 days.")
	idx1 := strings.Index(system, "billing.md")
	idx2 := strings.Index(system, "support.md")
	assert.Less(t, idx1, idx2)
}

func TestRunAgentProviderErrorKinds(t *testing.T) {
	eng := newEngine(mock.WithScript(mock.Turn{
		Err: &provider.Error{Kind: provider.ErrRateLimited, Provider: "mock", Message: "slow down"},
	}), nil)

	_, err := eng.RunAgent(context.Background(), testAgent(), "", false)
	aerr := agentErr(t, err)
	assert.Equal(t, ErrProvider, aerr.Kind)

	eng = newEngine(mock.WithScript(mock.Turn{
		Err: &provider.Error{Kind: provider.ErrTimeout, Provider: "mock", Message: "deadline"},
	}), nil)

	_, err = eng.RunAgent(context.Background(), testAgent(), "", false)
	aerr = agentErr(t, err)
	assert.Equal(t, ErrTimeout, aerr.Kind)
}

func TestRunAgentOutputInstructionsInSystemPrompt(t *testing.T) {
	cap := &capture{inner: mock.WithResponse(`{"answer": "x"}`)}
	eng := newEngine(cap, nil)

	agent := testAgent()
	agent.OutputFields = []ast.StructField{
		{Name: "answer", Type: &ast.TypeRef{Kind: ast.TypeString}},
	}

	_, err := eng.RunAgent(context.Background(), agent, "", false)
	require.NoError(t, err)

	system := cap.params[0].Conversation.Messages()[0].(messages.Instructions).Content
	assert.Contains(t, system, "Respond with ONLY a JSON object matching this schema")
	assert.Contains(t, system, `"answer"`)
}
