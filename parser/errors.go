package parser

import "fmt"

// SyntaxError is a fatal parse-time failure. Parsing stops at the first
// unrecoverable error; there is no recovery or continuation.
type SyntaxError struct {
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: expected %s, found %s", e.Line, e.Column, e.Expected, e.Found)
}
