// Package uuidx generates the run identifiers used to correlate log lines
// across one agent invocation.
package uuidx

import "github.com/google/uuid"

// New returns a fresh v7 UUID. v7 sorts by creation time, which keeps run
// ids in log output roughly chronological.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString is New rendered as a string.
func NewString() string {
	return New().String()
}
