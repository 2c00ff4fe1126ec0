// Package anthropic implements the provider interface against the Anthropic
// messages API with a plain HTTP client.
package anthropic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/strandlang/strand/messages"
	"github.com/strandlang/strand/pkg/jsonx"
	"github.com/strandlang/strand/pkg/slogx"
	"github.com/strandlang/strand/provider"
)

// Default configuration values.
const (
	DefaultTimeout = 5 * time.Minute
	DefaultBaseURL = "https://api.anthropic.com"

	maxTokens  = 8192
	apiVersion = "2023-06-01"
	maxRetries = 5
)

// Provider talks to the Anthropic messages API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures the client.
type Option func(*Provider)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(p *Provider) { p.apiKey = key }
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// New creates a client. The API key defaults to ANTHROPIC_API_KEY.
func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: slog.Default().With(slogx.LoggerName("provider.anthropic")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return provider.NameAnthropic }

// cacheControl marks a block for Anthropic prompt caching.
type cacheControl struct {
	Type string `json:"type"` // "ephemeral"
}

// systemBlock is a structured system prompt block with optional cache control.
type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type anthropicRequest struct {
	Model     string          `json:"model"`
	Messages  []anthropicMsg  `json:"messages"`
	System    any             `json:"system,omitempty"` // string or []systemBlock
	MaxTokens int             `json:"max_tokens"`
	Tools     []anthropicTool `json:"tools,omitempty"`
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentBlock
}

type contentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

type anthropicTool struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	CacheControl *cacheControl  `json:"cache_control,omitempty"`
}

type anthropicResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
}

func (p *Provider) Complete(ctx context.Context, params provider.CompletionParams) (*provider.Completion, error) {
	if p.apiKey == "" {
		return nil, &provider.Error{Kind: provider.ErrAuth, Provider: p.Name(), Message: "ANTHROPIC_API_KEY is not set"}
	}

	req, err := p.buildRequest(&params)
	if err != nil {
		return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Err: err}
	}

	resp, err := p.doRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	completion := &provider.Completion{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			completion.Content += block.Text
		case "tool_use":
			args, err := json.Marshal(block.Input)
			if err != nil {
				return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Err: err}
			}
			completion.ToolCalls = append(completion.ToolCalls, messages.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(args),
			})
		}
	}
	return completion, nil
}

func (p *Provider) buildRequest(params *provider.CompletionParams) (*anthropicRequest, error) {
	req := &anthropicRequest{
		Model:     params.Model,
		MaxTokens: maxTokens,
	}

	for _, message := range params.Conversation.Messages() {
		switch msg := message.(type) {
		case messages.Instructions:
			req.System = []systemBlock{{
				Type:         "text",
				Text:         msg.Content,
				CacheControl: &cacheControl{Type: "ephemeral"},
			}}

		case messages.UserPrompt:
			req.Messages = append(req.Messages, anthropicMsg{Role: "user", Content: msg.Content})

		case messages.AssistantMessage:
			var blocks []contentBlock
			if msg.Content != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				input := map[string]any{}
				if tc.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
						return nil, fmt.Errorf("tool call arguments: %w", err)
					}
				}
				blocks = append(blocks, contentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			req.Messages = append(req.Messages, anthropicMsg{Role: "assistant", Content: blocks})

		case messages.ToolResponse:
			req.Messages = append(req.Messages, anthropicMsg{
				Role: "user",
				Content: []contentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
					IsError:   msg.IsError,
				}},
			})
		}
	}

	// Mark the last tool with cache_control to cache the entire prefix
	// (system + tools) for prompt caching.
	for i, t := range params.Tools {
		schema, err := jsonx.ToDynamicJSON(t.Schema())
		if err != nil {
			return nil, err
		}
		at := anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		}
		if i == len(params.Tools)-1 {
			at.CacheControl = &cacheControl{Type: "ephemeral"}
		}
		req.Tools = append(req.Tools, at)
	}

	return req, nil
}

func (p *Provider) createHTTPRequest(ctx context.Context, req *anthropicRequest) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	return httpReq, nil
}

func (p *Provider) doRequest(ctx context.Context, req *anthropicRequest) (*anthropicResponse, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		httpReq, err := p.createHTTPRequest(ctx, req)
		if err != nil {
			return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Err: err}
		}

		httpResp, err := p.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &provider.Error{Kind: provider.ErrTimeout, Provider: p.Name(), Err: err}
			}
			return nil, &provider.Error{Kind: provider.ErrUnavailable, Provider: p.Name(), Err: err}
		}

		body, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Err: err}
		}

		if httpResp.StatusCode == http.StatusOK {
			var resp anthropicResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, &provider.Error{Kind: provider.ErrMalformed, Provider: p.Name(), Err: err}
			}
			return &resp, nil
		}

		// Retry on 429 (rate limit) and 529 (overloaded).
		if (httpResp.StatusCode == 429 || httpResp.StatusCode == 529) && attempt < maxRetries {
			wait := retryAfterDelay(httpResp, attempt)
			p.log.Warn("API rate limited, retrying",
				slog.Int("status", httpResp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait),
			)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil, &provider.Error{Kind: provider.ErrTimeout, Provider: p.Name(), Err: ctx.Err()}
			}
		}

		kind := provider.ErrUnavailable
		switch httpResp.StatusCode {
		case 401, 403:
			kind = provider.ErrAuth
		case 429:
			kind = provider.ErrRateLimited
		}
		return nil, &provider.Error{
			Kind:     kind,
			Provider: p.Name(),
			Message:  fmt.Sprintf("API error %d: %s", httpResp.StatusCode, string(body)),
		}
	}

	return nil, &provider.Error{Kind: provider.ErrRateLimited, Provider: p.Name(), Message: "max retries exceeded"}
}

// retryAfterDelay respects the retry-after header if present, otherwise
// exponential backoff.
func retryAfterDelay(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("retry-after"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}
