// Package messages models the conversation an agent run accumulates: the
// system instructions, user prompts, assistant turns with their tool calls,
// and tool results.
//
// Design decisions:
//   - Role-tagged types: each turn is its own struct behind the Message
//     interface, so providers can switch on concrete types when mapping to
//     their wire formats
//   - Raw tool arguments: tool call arguments stay as the JSON text the model
//     produced; decoding happens at the tool boundary where the declared
//     parameter types are known
//   - Append-only transcript: a Conversation only grows, which keeps retries
//     and multi-step tool loops auditable after the fact
//
// Example usage:
//
//	conv := messages.New("You are a helpful assistant")
//	conv.AddUserPrompt("Summarize this document")
//	conv.AddAssistant("", []messages.ToolCall{{ID: "c1", Name: "read_file", Arguments: `{"path":"doc.md"}`}})
//	conv.AddToolResponse("c1", "read_file", "...contents...", false)
package messages
