package interp

import (
	"context"
	"strings"

	"github.com/strandlang/strand/ast"
)

func (in *Interpreter) arrayMethod(ctx context.Context, arr *Array, method string, args []Value, pos ast.Pos) (Value, error) {
	switch method {
	case "length":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "length takes no arguments"}
		}
		return Number(len(arr.Elems)), nil

	case "map":
		fn, err := callableArg(args, "map", pos)
		if err != nil {
			return nil, err
		}
		out := &Array{Elems: make([]Value, len(arr.Elems))}
		for i, el := range arr.Elems {
			v, err := in.apply(ctx, fn, []Value{el}, pos)
			if err != nil {
				return nil, err
			}
			out.Elems[i] = v
		}
		return out, nil

	case "filter":
		fn, err := callableArg(args, "filter", pos)
		if err != nil {
			return nil, err
		}
		out := &Array{}
		for _, el := range arr.Elems {
			keep, err := in.apply(ctx, fn, []Value{el}, pos)
			if err != nil {
				return nil, err
			}
			if keep.Truthy() {
				out.Elems = append(out.Elems, el)
			}
		}
		return out, nil

	case "reduce":
		// reduce(fn, seed): the seed is required and folding is left to right.
		if len(args) != 2 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "reduce takes a function and a seed"}
		}
		fn := args[0]
		if !isCallable(fn) {
			return nil, errType(pos, "a function for reduce", fn.TypeName())
		}
		acc := args[1]
		for _, el := range arr.Elems {
			var err error
			acc, err = in.apply(ctx, fn, []Value{acc, el}, pos)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil

	case "find":
		fn, err := callableArg(args, "find", pos)
		if err != nil {
			return nil, err
		}
		for _, el := range arr.Elems {
			hit, err := in.apply(ctx, fn, []Value{el}, pos)
			if err != nil {
				return nil, err
			}
			if hit.Truthy() {
				return el, nil
			}
		}
		return Null{}, nil

	case "indexOf":
		if len(args) != 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "indexOf takes one argument"}
		}
		for i, el := range arr.Elems {
			if Equal(el, args[0]) {
				return Number(i), nil
			}
		}
		return Number(-1), nil

	case "contains":
		if len(args) != 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "contains takes one argument"}
		}
		for _, el := range arr.Elems {
			if Equal(el, args[0]) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil

	case "concat":
		if len(args) != 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "concat takes one array"}
		}
		other, ok := args[0].(*Array)
		if !ok {
			return nil, errType(pos, "an array for concat", args[0].TypeName())
		}
		out := &Array{Elems: make([]Value, 0, len(arr.Elems)+len(other.Elems))}
		out.Elems = append(out.Elems, arr.Elems...)
		out.Elems = append(out.Elems, other.Elems...)
		return out, nil

	case "slice":
		start, end, err := sliceBounds(args, len(arr.Elems), pos)
		if err != nil {
			return nil, err
		}
		out := &Array{Elems: make([]Value, end-start)}
		copy(out.Elems, arr.Elems[start:end])
		return out, nil

	case "join":
		sep := ","
		if len(args) > 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "join takes an optional separator"}
		}
		if len(args) == 1 {
			s, ok := args[0].(String)
			if !ok {
				return nil, errType(pos, "a string separator", args[0].TypeName())
			}
			sep = string(s)
		}
		parts := make([]string, len(arr.Elems))
		for i, el := range arr.Elems {
			parts[i] = el.String()
		}
		return String(strings.Join(parts, sep)), nil

	case "push":
		// Returns a new array; the receiver is never mutated in place.
		out := &Array{Elems: make([]Value, 0, len(arr.Elems)+len(args))}
		out.Elems = append(out.Elems, arr.Elems...)
		out.Elems = append(out.Elems, args...)
		return out, nil

	case "reverse":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "reverse takes no arguments"}
		}
		out := &Array{Elems: make([]Value, len(arr.Elems))}
		for i, el := range arr.Elems {
			out.Elems[len(arr.Elems)-1-i] = el
		}
		return out, nil

	default:
		return nil, unknownMethod(arr, method, pos)
	}
}

func isCallable(v Value) bool {
	switch v.(type) {
	case *Closure, builtinFn, *EnumConstructor:
		return true
	default:
		return false
	}
}

func callableArg(args []Value, method string, pos ast.Pos) (Value, error) {
	if len(args) != 1 {
		return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: method + " takes one function argument"}
	}
	if !isCallable(args[0]) {
		return nil, errType(pos, "a function for "+method, args[0].TypeName())
	}
	return args[0], nil
}

// sliceBounds resolves slice(start[, end]) arguments, clamping to the
// receiver's length and supporting negative offsets from the end.
func sliceBounds(args []Value, length int, pos ast.Pos) (int, int, error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, 0, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "slice takes a start and an optional end"}
	}
	resolve := func(v Value) (int, error) {
		n, ok := v.(Number)
		if !ok {
			return 0, errType(pos, "a number bound for slice", v.TypeName())
		}
		i := int(n)
		if i < 0 {
			i += length
		}
		if i < 0 {
			i = 0
		}
		if i > length {
			i = length
		}
		return i, nil
	}

	start, err := resolve(args[0])
	if err != nil {
		return 0, 0, err
	}
	end := length
	if len(args) == 2 {
		if end, err = resolve(args[1]); err != nil {
			return 0, 0, err
		}
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func objectMethod(obj *Object, method string, args []Value, pos ast.Pos) (Value, error) {
	switch method {
	case "keys":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "keys takes no arguments"}
		}
		keys := obj.Keys()
		out := &Array{Elems: make([]Value, len(keys))}
		for i, k := range keys {
			out.Elems[i] = String(k)
		}
		return out, nil

	case "values":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "values takes no arguments"}
		}
		out := &Array{Elems: make([]Value, 0, obj.Len())}
		obj.Entries(func(_ string, v Value) {
			out.Elems = append(out.Elems, v)
		})
		return out, nil

	case "has":
		if len(args) != 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "has takes one key"}
		}
		key, ok := args[0].(String)
		if !ok {
			return nil, errType(pos, "a string key", args[0].TypeName())
		}
		_, found := obj.Get(string(key))
		return Bool(found), nil

	case "length":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "length takes no arguments"}
		}
		return Number(obj.Len()), nil

	default:
		return nil, unknownMethod(obj, method, pos)
	}
}
