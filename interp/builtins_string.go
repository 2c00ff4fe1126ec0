package interp

import (
	"strings"

	"github.com/strandlang/strand/ast"
)

// stringMethod dispatches string builtins. Index- and length-based methods
// operate on Unicode scalar values, never on bytes.
func stringMethod(s String, method string, args []Value, pos ast.Pos) (Value, error) {
	str := string(s)

	switch method {
	case "length":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "length takes no arguments"}
		}
		return Number(len([]rune(str))), nil

	case "trim":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "trim takes no arguments"}
		}
		return String(strings.TrimSpace(str)), nil

	case "toLowerCase":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "toLowerCase takes no arguments"}
		}
		return String(strings.ToLower(str)), nil

	case "toUpperCase":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "toUpperCase takes no arguments"}
		}
		return String(strings.ToUpper(str)), nil

	case "split":
		if len(args) != 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "split takes one separator"}
		}
		sep, ok := args[0].(String)
		if !ok {
			return nil, errType(pos, "a string separator", args[0].TypeName())
		}
		pieces := strings.Split(str, string(sep))
		out := &Array{Elems: make([]Value, len(pieces))}
		for i, p := range pieces {
			out.Elems[i] = String(p)
		}
		return out, nil

	case "contains":
		sub, err := oneString(args, "contains", pos)
		if err != nil {
			return nil, err
		}
		return Bool(strings.Contains(str, sub)), nil

	case "startsWith":
		prefix, err := oneString(args, "startsWith", pos)
		if err != nil {
			return nil, err
		}
		return Bool(strings.HasPrefix(str, prefix)), nil

	case "endsWith":
		suffix, err := oneString(args, "endsWith", pos)
		if err != nil {
			return nil, err
		}
		return Bool(strings.HasSuffix(str, suffix)), nil

	case "indexOf":
		sub, err := oneString(args, "indexOf", pos)
		if err != nil {
			return nil, err
		}
		byteIdx := strings.Index(str, sub)
		if byteIdx < 0 {
			return Number(-1), nil
		}
		return Number(len([]rune(str[:byteIdx]))), nil

	case "replace":
		if len(args) != 2 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "replace takes a pattern and a replacement"}
		}
		old, ok := args[0].(String)
		if !ok {
			return nil, errType(pos, "a string pattern", args[0].TypeName())
		}
		repl, ok := args[1].(String)
		if !ok {
			return nil, errType(pos, "a string replacement", args[1].TypeName())
		}
		return String(strings.ReplaceAll(str, string(old), string(repl))), nil

	case "slice":
		runes := []rune(str)
		start, end, err := sliceBounds(args, len(runes), pos)
		if err != nil {
			return nil, err
		}
		return String(string(runes[start:end])), nil

	default:
		return nil, unknownMethod(s, method, pos)
	}
}

func oneString(args []Value, method string, pos ast.Pos) (string, error) {
	if len(args) != 1 {
		return "", &RuntimeError{Kind: ErrArity, Pos: pos, Message: method + " takes one string argument"}
	}
	s, ok := args[0].(String)
	if !ok {
		return "", errType(pos, "a string for "+method, args[0].TypeName())
	}
	return string(s), nil
}
