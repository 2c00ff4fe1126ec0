package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/kb"
)

// builtinFn is a native callable exposed as a global name.
type builtinFn struct {
	name string
	fn   func(in *Interpreter, args []Value, pos ast.Pos) (Value, error)
}

func (b builtinFn) TypeName() string { return "Function" }
func (b builtinFn) Truthy() bool     { return true }
func (b builtinFn) String() string   { return "<builtin " + b.name + ">" }

var builtins map[string]builtinFn

func init() {
	builtins = map[string]builtinFn{
		"print":         {name: "print", fn: builtinPrint},
		"println":       {name: "println", fn: builtinPrintln},
		"len":           {name: "len", fn: builtinLen},
		"str":           {name: "str", fn: builtinStr},
		"num":           {name: "num", fn: builtinNum},
		"KnowledgeBase": {name: "KnowledgeBase", fn: builtinKnowledgeBase},
	}
}

func builtinPrint(in *Interpreter, args []Value, _ ast.Pos) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	fmt.Fprint(in.stdout, strings.Join(parts, " "))
	return Null{}, nil
}

func builtinPrintln(in *Interpreter, args []Value, pos ast.Pos) (Value, error) {
	if _, err := builtinPrint(in, args, pos); err != nil {
		return nil, err
	}
	fmt.Fprintln(in.stdout)
	return Null{}, nil
}

func builtinLen(_ *Interpreter, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 {
		return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "len takes one argument"}
	}
	switch v := args[0].(type) {
	case String:
		return Number(len([]rune(string(v)))), nil
	case *Array:
		return Number(len(v.Elems)), nil
	case *Object:
		return Number(v.Len()), nil
	default:
		return nil, errType(pos, "a string, array, or object for len", args[0].TypeName())
	}
}

func builtinStr(_ *Interpreter, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 {
		return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "str takes one argument"}
	}
	return String(args[0].String()), nil
}

func builtinNum(_ *Interpreter, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 {
		return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "num takes one argument"}
	}
	switch v := args[0].(type) {
	case Number:
		return v, nil
	case Bool:
		if v {
			return Number(1), nil
		}
		return Number(0), nil
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return nil, &RuntimeError{Kind: ErrType, Pos: pos, Message: fmt.Sprintf("cannot convert %q to a number", string(v))}
		}
		return Number(f), nil
	default:
		return nil, errType(pos, "a number, boolean, or numeric string for num", args[0].TypeName())
	}
}

func builtinKnowledgeBase(in *Interpreter, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 {
		return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "KnowledgeBase takes a source path"}
	}
	path, ok := args[0].(String)
	if !ok {
		return nil, errType(pos, "a string path", args[0].TypeName())
	}
	base, err := kb.Open(string(path))
	if err != nil {
		return nil, &RuntimeError{Kind: ErrConfig, Pos: pos, Message: "cannot open knowledge base: " + err.Error()}
	}
	return &KnowledgeHandle{Path: string(path), KB: base}, nil
}
