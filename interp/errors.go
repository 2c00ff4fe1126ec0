package interp

import (
	"fmt"

	"github.com/strandlang/strand/ast"
)

// ErrorKind classifies runtime errors for catch blocks and diagnostics.
type ErrorKind string

const (
	ErrType         ErrorKind = "TypeError"
	ErrConfig       ErrorKind = "ConfigError"
	ErrNoMatch      ErrorKind = "NoMatchingArm"
	ErrUndefined    ErrorKind = "UndefinedName"
	ErrNotCallable  ErrorKind = "NotCallable"
	ErrNotIndexable ErrorKind = "NotIndexable"
	ErrArity        ErrorKind = "ArityError"
	ErrRuntime      ErrorKind = "RuntimeError"
)

// RuntimeError is a catchable evaluation failure. Inside try/catch it is
// bound as an object with at least a `message` field.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Pos     ast.Pos
	// Fields carries extra key/value context surfaced on the catch object.
	Fields map[string]Value
}

func (e *RuntimeError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// CatchValue renders the error as the object bound in a catch block.
func (e *RuntimeError) CatchValue() *Object {
	obj := NewObject()
	obj.Set("kind", String(string(e.Kind)))
	obj.Set("message", String(e.Message))
	for k, v := range e.Fields {
		obj.Set(k, v)
	}
	return obj
}

func errType(pos ast.Pos, expected, got string) *RuntimeError {
	return &RuntimeError{Kind: ErrType, Pos: pos, Message: fmt.Sprintf("expected %s, got %s", expected, got)}
}

func errUndefined(pos ast.Pos, name string) *RuntimeError {
	return &RuntimeError{Kind: ErrUndefined, Pos: pos, Message: fmt.Sprintf("undefined name '%s'", name)}
}

// Catchable converts any error raised during evaluation into the object a
// catch block binds. Errors from collaborators (agents, providers, tools)
// keep their message and, where they expose one, their kind.
func Catchable(err error) *Object {
	type catcher interface{ CatchValue() *Object }
	if c, ok := err.(catcher); ok { //nolint:errorlint
		return c.CatchValue()
	}
	obj := NewObject()
	obj.Set("message", String(err.Error()))
	return obj
}

// Control-flow signals travel as errors so they unwind nested blocks; they
// are intercepted by the loop or call frame they belong to.

type breakSignal struct{}

func (breakSignal) Error() string { return "break outside of loop" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue outside of loop" }

type returnSignal struct {
	value Value
}

func (returnSignal) Error() string { return "return outside of function" }
