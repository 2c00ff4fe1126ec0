package provider

import "fmt"

// ErrorKind classifies provider failures so callers can decide whether to
// retry, surface, or abort.
type ErrorKind string

const (
	ErrAuth        ErrorKind = "auth"
	ErrRateLimited ErrorKind = "rate_limited"
	ErrTimeout     ErrorKind = "timeout"
	ErrMalformed   ErrorKind = "malformed_response"
	ErrUnavailable ErrorKind = "unavailable"
)

// Error is a failure talking to a backend.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s provider: %s", e.Provider, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s provider: %s", e.Provider, e.Err.Error())
	}
	return fmt.Sprintf("%s provider: %s", e.Provider, string(e.Kind))
}

func (e *Error) Unwrap() error { return e.Err }
