// Package engine executes agent invocations: it assembles conversations,
// drives the tool-calling loop against a provider, validates structured
// output, and fans out parallel blocks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strandlang/strand/interp"
	"github.com/strandlang/strand/messages"
	"github.com/strandlang/strand/pkg/slogx"
	"github.com/strandlang/strand/pkg/uuidx"
	"github.com/strandlang/strand/provider"
	"github.com/strandlang/strand/tool"
)

// defaultUserInput opens the conversation when an agent is run without input
// and declares no user prompt.
const defaultUserInput = "Hello!"

// defaultProviderTimeout bounds a single completion call.
const defaultProviderTimeout = 5 * time.Minute

// ProviderFactory resolves agent declarations to provider clients.
type ProviderFactory interface {
	ForAgent(explicit, model string) (provider.Provider, error)
	DefaultModel() string
}

// Engine implements interp.Runner.
type Engine struct {
	factory         ProviderFactory
	tools           *tool.Registry
	log             *slog.Logger
	providerTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithProviderTimeout overrides the per-completion timeout.
func WithProviderTimeout(d time.Duration) Option {
	return func(e *Engine) { e.providerTimeout = d }
}

// New constructs an engine sharing the evaluator's tool registry.
func New(factory ProviderFactory, tools *tool.Registry, opts ...Option) *Engine {
	e := &Engine{
		factory:         factory,
		tools:           tools,
		log:             slog.Default().With(slogx.LoggerName("engine")),
		providerTimeout: defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunAgent performs one agent invocation: conversation assembly, the tool
// loop, and structured-output validation with bounded retries.
func (e *Engine) RunAgent(ctx context.Context, agent *interp.AgentHandle, input string, hasInput bool) (interp.Value, error) {
	runID := uuidx.New()

	prov, err := e.factory.ForAgent(agent.Provider, agent.Model)
	if err != nil {
		return nil, &AgentError{Kind: ErrConfig, Agent: agent.Name, Message: err.Error(), Err: err}
	}

	model := agent.Model
	if model == "" {
		model = e.factory.DefaultModel()
	}

	defs, err := e.tools.Resolve(agent.Tools)
	if err != nil {
		return nil, &AgentError{Kind: ErrUnknownTool, Agent: agent.Name, Message: err.Error(), Err: err}
	}

	userPrompt := agent.UserPrompt
	if hasInput {
		userPrompt = input
	}
	if userPrompt == "" {
		userPrompt = defaultUserInput
	}

	system := agent.SystemPrompt
	if agent.Knowledge != nil {
		contextBlock, err := e.retrieveContext(ctx, agent, userPrompt)
		if err != nil {
			return nil, err
		}
		if contextBlock != "" {
			system += "\n\n" + contextBlock
		}
	}
	structured := len(agent.OutputFields) > 0
	if structured {
		system += "\n\n" + outputInstructions(agent)
	}

	conv := messages.New(system)
	conv.AddUserPrompt(userPrompt)

	log := e.log.With(
		slog.String("agent", agent.Name),
		slog.String("run_id", runID.String()),
		slog.String("provider", prov.Name()),
		slog.String("model", model),
	)

	attempts := 1
	if structured {
		attempts = agent.OutputRetries + 1
	}

	var lastValidation error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := e.converse(ctx, log, prov, runID, model, conv, defs, agent)
		if err != nil {
			return nil, err
		}

		if !structured {
			return interp.String(text), nil
		}

		value, err := decodeStructured(text, agent.OutputFields)
		if err == nil {
			return value, nil
		}
		lastValidation = err
		log.Debug("structured output rejected",
			slog.Int("attempt", attempt),
			slogx.Error(err),
		)
		if attempt < attempts {
			conv.AddUserPrompt(retryPrompt(agent, err))
		}
	}

	return nil, &AgentError{
		Kind:     ErrOutputValidation,
		Agent:    agent.Name,
		Message:  lastValidation.Error(),
		Attempts: attempts,
		Err:      lastValidation,
	}
}

// converse drives the tool loop until the model produces a plain text turn
// or the step budget runs out. Each completion call counts as one step.
func (e *Engine) converse(
	ctx context.Context,
	log *slog.Logger,
	prov provider.Provider,
	runID uuid.UUID,
	model string,
	conv *messages.Conversation,
	defs []tool.Definition,
	agent *interp.AgentHandle,
) (string, error) {
	for step := 1; step <= agent.MaxSteps; step++ {
		completion, err := e.complete(ctx, prov, provider.CompletionParams{
			RunID:        runID,
			Model:        model,
			Conversation: conv,
			Tools:        defs,
		})
		if err != nil {
			return "", e.wrapProviderError(ctx, agent, err)
		}

		conv.AddAssistant(completion.Content, completion.ToolCalls)
		if len(completion.ToolCalls) == 0 {
			return completion.Content, nil
		}

		for _, call := range completion.ToolCalls {
			result, err := e.dispatchTool(ctx, log, defs, call)
			if err != nil {
				var argErr *tool.ArgumentError
				if errors.As(err, &argErr) {
					return "", &AgentError{Kind: ErrToolArgument, Agent: agent.Name, Message: err.Error(), Err: err}
				}
				// Execution failures go back to the model, which may recover
				// or try another approach.
				conv.AddToolResponse(call.ID, call.Name, err.Error(), true)
				continue
			}
			conv.AddToolResponse(call.ID, call.Name, result, false)
		}
	}

	return "", &AgentError{
		Kind:    ErrStepLimit,
		Agent:   agent.Name,
		Message: fmt.Sprintf("no final answer after %d steps", agent.MaxSteps),
	}
}

func (e *Engine) complete(ctx context.Context, prov provider.Provider, params provider.CompletionParams) (*provider.Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.providerTimeout)
	defer cancel()
	return prov.Complete(callCtx, params)
}

func (e *Engine) dispatchTool(ctx context.Context, log *slog.Logger, defs []tool.Definition, call messages.ToolCall) (string, error) {
	var def *tool.Definition
	for i := range defs {
		if defs[i].Name == call.Name {
			def = &defs[i]
			break
		}
	}
	if def == nil {
		// The model called a tool this agent never declared.
		return "", fmt.Errorf("tool %q is not available to this agent", call.Name)
	}

	start := time.Now()
	result, err := def.Execute(ctx, []byte(call.Arguments))
	if err != nil {
		log.Debug("tool failed",
			slog.String("tool", call.Name),
			slog.Duration("duration", time.Since(start)),
			slogx.Error(err),
		)
		return "", err
	}
	log.Debug("tool completed",
		slog.String("tool", call.Name),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// retrieveContext searches the agent's knowledge base with the prompt and
// renders the hits as a context block for the system prompt.
func (e *Engine) retrieveContext(ctx context.Context, agent *interp.AgentHandle, query string) (string, error) {
	kc := agent.Knowledge
	hits, err := kc.Source.Search(ctx, query, kc.ChunkLimit, kc.ScoreThreshold)
	if err != nil {
		return "", &AgentError{Kind: ErrConfig, Agent: agent.Name, Message: "knowledge retrieval failed: " + err.Error(), Err: err}
	}
	if len(hits) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("Relevant context from the knowledge base:\n")
	for _, hit := range hits {
		sb.WriteString(fmt.Sprintf("\n--- %s ---\n%s\n", hit.Source, hit.Text))
	}
	return sb.String(), nil
}

func (e *Engine) wrapProviderError(ctx context.Context, agent *interp.AgentHandle, err error) error {
	kind := ErrProvider
	var pErr *provider.Error
	if errors.As(err, &pErr) && pErr.Kind == provider.ErrTimeout {
		kind = ErrTimeout
	}
	if ctx.Err() != nil {
		kind = ErrTimeout
	}
	return &AgentError{Kind: kind, Agent: agent.Name, Message: err.Error(), Err: err}
}
