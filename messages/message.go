package messages

import (
	"time"

	"github.com/go-openapi/strfmt"
)

func now() strfmt.DateTime {
	return strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond))
}

// Message is one turn in an agent conversation.
type Message interface {
	message()
}

// Instructions is the system prompt that opens every conversation.
type Instructions struct {
	Content string `json:"content"`
}

func (Instructions) message() {}

// UserPrompt is input attributed to the user, including the agent's bound
// user prompt and structured-output retry prompts.
type UserPrompt struct {
	Content   string          `json:"content"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (UserPrompt) message() {}

// AssistantMessage is a model turn: text, tool calls, or both.
type AssistantMessage struct {
	Content   string          `json:"content"`
	ToolCalls []ToolCall      `json:"tool_calls,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (AssistantMessage) message() {}

// ToolCall is one tool invocation requested by the model. Arguments is the
// raw JSON object exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResponse carries a tool's result (or its error text) back to the model.
type ToolResponse struct {
	ToolCallID string          `json:"tool_call_id"`
	ToolName   string          `json:"tool_name"`
	Content    string          `json:"content"`
	IsError    bool            `json:"is_error,omitempty"`
	Timestamp  strfmt.DateTime `json:"timestamp"`
}

func (ToolResponse) message() {}

// Conversation is the ordered transcript handed to a provider. The zero
// value is usable.
type Conversation struct {
	msgs []Message
}

// New returns a conversation opened with the given system instructions.
func New(instructions string) *Conversation {
	return &Conversation{msgs: []Message{Instructions{Content: instructions}}}
}

// AddUserPrompt appends a user turn.
func (c *Conversation) AddUserPrompt(content string) {
	c.msgs = append(c.msgs, UserPrompt{Content: content, Timestamp: now()})
}

// AddAssistant appends a model turn.
func (c *Conversation) AddAssistant(content string, calls []ToolCall) {
	c.msgs = append(c.msgs, AssistantMessage{Content: content, ToolCalls: calls, Timestamp: now()})
}

// AddToolResponse appends a tool result turn.
func (c *Conversation) AddToolResponse(callID, toolName, content string, isErr bool) {
	c.msgs = append(c.msgs, ToolResponse{
		ToolCallID: callID,
		ToolName:   toolName,
		Content:    content,
		IsError:    isErr,
		Timestamp:  now(),
	})
}

// Messages returns the transcript in order. The slice is shared; callers
// must not mutate it.
func (c *Conversation) Messages() []Message {
	return c.msgs
}

// Len is the number of turns.
func (c *Conversation) Len() int { return len(c.msgs) }
