/*
Package openai implements the provider.Provider interface on top of OpenAI's
chat completions API.

# Design Decisions

  - Single client: one client per API key, shared across concurrent agent
    runs; the official SDK handles connection reuse
  - Tool schemas pass through: declared tool parameter schemas are converted
    to the SDK's dynamic JSON form without re-validation, the API rejects
    malformed ones
  - Error classification: SDK errors are mapped to the provider error
    taxonomy by HTTP status (401/403 auth, 429 rate_limited, 5xx unavailable)
    and context deadlines become timeouts

# Message Handling

The conversation transcript maps onto the chat roles: Instructions become the
system message, UserPrompt a user message, AssistantMessage an assistant
message carrying tool calls when present, and ToolResponse a tool message
keyed by call ID.
*/
package openai
