package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/strandlang/strand/messages"
	"github.com/strandlang/strand/pkg/jsonx"
	"github.com/strandlang/strand/provider"
)

// Provider talks to the OpenAI chat completions API.
type Provider struct {
	client *openai.Client
}

// New constructs a provider. Credentials and base URL, when not given as
// options, come from the environment via the client's defaults.
func New(options ...option.RequestOption) *Provider {
	return &Provider{client: openai.NewClient(options...)}
}

func (p *Provider) Name() string { return provider.NameOpenAI }

func (p *Provider) Complete(ctx context.Context, params provider.CompletionParams) (*provider.Completion, error) {
	chatParams, err := p.buildRequest(&params)
	if err != nil {
		return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Err: err}
	}

	chat, err := p.client.Chat.Completions.New(ctx, chatParams)
	if err != nil {
		return nil, p.classify(err)
	}
	if len(chat.Choices) == 0 {
		return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Message: "completion returned no choices"}
	}

	choice := chat.Choices[0].Message
	completion := &provider.Completion{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, messages.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return completion, nil
}

func (p *Provider) buildRequest(params *provider.CompletionParams) (openai.ChatCompletionNewParams, error) {
	msgs, err := messagesToOpenAI(params.Conversation)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	oaiParams := openai.ChatCompletionNewParams{
		Messages:    openai.F(msgs),
		Model:       openai.F(params.Model),
		N:           openai.Int(1),
		Temperature: openai.Float(0.1),
	}

	if len(params.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(params.Tools))
		for i, t := range params.Tools {
			jv, err := jsonx.ToDynamicJSON(t.Schema())
			if err != nil {
				return openai.ChatCompletionNewParams{}, err
			}
			def := openai.FunctionDefinitionParam{
				Name:       openai.String(t.Name),
				Parameters: openai.F(shared.FunctionParameters(jv)),
			}
			if strings.TrimSpace(t.Description) != "" {
				def.Description = openai.String(t.Description)
			}
			tools[i] = openai.ChatCompletionToolParam{
				Type:     openai.F(openai.ChatCompletionToolTypeFunction),
				Function: openai.F(def),
			}
		}
		oaiParams.Tools = openai.F(tools)
		oaiParams.ParallelToolCalls = openai.Bool(true)
	}

	return oaiParams, nil
}

func messagesToOpenAI(conv *messages.Conversation) ([]openai.ChatCompletionMessageParamUnion, error) {
	var result []openai.ChatCompletionMessageParamUnion
	for _, message := range conv.Messages() {
		switch msg := message.(type) {
		case messages.Instructions:
			result = append(result, openai.SystemMessage(msg.Content))

		case messages.UserPrompt:
			result = append(result, openai.UserMessageParts(openai.TextPart(msg.Content)))

		case messages.ToolResponse:
			result = append(result, openai.ToolMessage(msg.ToolCallID, msg.Content))

		case messages.AssistantMessage:
			if len(msg.ToolCalls) > 0 {
				tcd := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					tcd[i] = openai.ChatCompletionMessageToolCallParam{
						ID:   openai.String(tc.ID),
						Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
						Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      openai.String(tc.Name),
							Arguments: openai.String(tc.Arguments),
						}),
					}
				}
				result = append(result, openai.ChatCompletionMessageParam{
					Role:      openai.F(openai.ChatCompletionMessageParamRoleAssistant),
					ToolCalls: openai.F[any](tcd),
				})
				continue
			}
			am := openai.ChatCompletionAssistantMessageParam{
				Role: openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
			}
			if msg.Content != "" {
				am.Content.Value = append(am.Content.Value, openai.TextPart(msg.Content))
			}
			result = append(result, am)

		default:
			return nil, errors.New("unsupported message type in conversation")
		}
	}
	return result, nil
}

func (p *Provider) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind := provider.ErrUnavailable
		switch apiErr.StatusCode {
		case 401, 403:
			kind = provider.ErrAuth
		case 429:
			kind = provider.ErrRateLimited
		case 408:
			kind = provider.ErrTimeout
		}
		return &provider.Error{Kind: kind, Provider: p.Name(), Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &provider.Error{Kind: provider.ErrTimeout, Provider: p.Name(), Err: err}
	}
	return &provider.Error{Kind: provider.ErrUnavailable, Provider: p.Name(), Err: err}
}
