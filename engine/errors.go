package engine

import (
	"fmt"

	"github.com/strandlang/strand/interp"
)

// ErrorKind classifies agent execution failures. The kind is surfaced on the
// object bound in a program's catch block.
type ErrorKind string

const (
	ErrConfig           ErrorKind = "ConfigError"
	ErrUnknownTool      ErrorKind = "UnknownTool"
	ErrToolArgument     ErrorKind = "ToolArgumentError"
	ErrStepLimit        ErrorKind = "StepLimitExceeded"
	ErrOutputValidation ErrorKind = "OutputValidationFailed"
	ErrProvider         ErrorKind = "ProviderError"
	ErrTimeout          ErrorKind = "Timeout"
)

// AgentError is a failure during one agent invocation.
type AgentError struct {
	Kind    ErrorKind
	Agent   string
	Message string
	// Attempts is set for output validation failures: the total number of
	// completions tried, i.e. outputRetries + 1.
	Attempts int
	Err      error
}

func (e *AgentError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("agent %s: %s: %s (after %d attempts)", e.Agent, e.Kind, e.Message, e.Attempts)
	}
	return fmt.Sprintf("agent %s: %s: %s", e.Agent, e.Kind, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Err }

// CatchValue renders the error as the object a catch block binds.
func (e *AgentError) CatchValue() *interp.Object {
	obj := interp.NewObject()
	obj.Set("kind", interp.String(string(e.Kind)))
	obj.Set("agent", interp.String(e.Agent))
	obj.Set("message", interp.String(e.Message))
	if e.Attempts > 0 {
		obj.Set("attempts", interp.Number(e.Attempts))
	}
	return obj
}
