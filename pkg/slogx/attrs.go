// Package slogx holds the slog attribute conventions shared across the
// runtime: every component logger carries a "logger" attribute, and errors
// log under the "error" key.
package slogx

import "log/slog"

// Error renders err under the "error" key.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// LoggerName tags a logger with the component that owns it, e.g. "engine".
func LoggerName(name string) slog.Attr {
	return slog.String("logger", name)
}
