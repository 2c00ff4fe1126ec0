// Package provider abstracts model backends behind a single completion
// interface so the agent engine never deals with provider-specific wire
// formats.
//
// Design decisions:
//   - One call shape: Complete takes the whole conversation plus the tools
//     the agent declared and returns text and/or tool calls; the engine owns
//     the loop, providers own the transport
//   - Shared error taxonomy: backends classify failures into Error kinds
//     (auth, rate_limited, timeout, malformed_response, unavailable) so the
//     engine can report them uniformly
//   - Name-based selection: Resolve maps an explicit provider name or a
//     model identifier prefix to a backend; claude-* models go to anthropic,
//     gpt-*, o1* and o3* to openai
//
// Backends live in subpackages: openai, anthropic, claudecode, and mock.
// The factory subpackage constructs and caches them from configuration.
//
// Example usage:
//
//	p := mock.New()
//	completion, err := p.Complete(ctx, provider.CompletionParams{
//	    RunID:        uuidx.New(),
//	    Model:        "gpt-4o-mini",
//	    Conversation: conv,
//	    Tools:        defs,
//	})
package provider
