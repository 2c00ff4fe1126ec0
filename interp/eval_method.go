package interp

import (
	"context"
	"fmt"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/kb"
)

func (in *Interpreter) evalMethodCall(ctx context.Context, e *ast.MethodCallExpr, env *Env) (Value, error) {
	recv, err := in.eval(ctx, e.Receiver, env)
	if err != nil {
		return nil, err
	}
	args, err := in.evalArgs(ctx, e.Args, env)
	if err != nil {
		return nil, err
	}

	switch r := recv.(type) {
	case *Array:
		return in.arrayMethod(ctx, r, e.Method, args, e.Position)

	case String:
		return stringMethod(r, e.Method, args, e.Position)

	case *Object:
		return objectMethod(r, e.Method, args, e.Position)

	case *AgentHandle:
		return in.agentMethod(ctx, r, e.Method, args, e.Position)

	case *ParallelHandle:
		if e.Method != "run" {
			return nil, unknownMethod(recv, e.Method, e.Position)
		}
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: e.Position, Message: "run takes no arguments on a parallel block"}
		}
		return in.runParallel(ctx, r, e.Position)

	case *KnowledgeHandle:
		return in.knowledgeMethod(ctx, r, e.Method, args, e.Position)

	default:
		return nil, unknownMethod(recv, e.Method, e.Position)
	}
}

func unknownMethod(recv Value, method string, pos ast.Pos) *RuntimeError {
	return &RuntimeError{
		Kind:    ErrRuntime,
		Pos:     pos,
		Message: fmt.Sprintf("%s has no method '%s'", recv.TypeName(), method),
	}
}

func (in *Interpreter) agentMethod(ctx context.Context, agent *AgentHandle, method string, args []Value, pos ast.Pos) (Value, error) {
	switch method {
	case "run":
		switch len(args) {
		case 0:
			return in.runAgent(ctx, agent, "", false, pos)
		case 1:
			input, ok := args[0].(String)
			if !ok {
				return nil, errType(pos, "a string input for agent "+agent.Name, args[0].TypeName())
			}
			return in.runAgent(ctx, agent, string(input), true, pos)
		default:
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "run takes at most one input argument"}
		}

	case "withUserPrompt":
		if len(args) != 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "withUserPrompt takes one argument"}
		}
		prompt, ok := args[0].(String)
		if !ok {
			return nil, errType(pos, "a string prompt", args[0].TypeName())
		}
		return agent.WithUserPrompt(string(prompt)), nil

	default:
		return nil, unknownMethod(agent, method, pos)
	}
}

func (in *Interpreter) knowledgeMethod(ctx context.Context, handle *KnowledgeHandle, method string, args []Value, pos ast.Pos) (Value, error) {
	switch method {
	case "index":
		opts := kb.IndexOptions{}
		if len(args) > 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "index takes at most one options object"}
		}
		if len(args) == 1 {
			obj, ok := args[0].(*Object)
			if !ok {
				return nil, errType(pos, "an options object for index", args[0].TypeName())
			}
			if v, found := obj.Get("extensions"); found {
				arr, ok := v.(*Array)
				if !ok {
					return nil, errType(pos, "an array of extensions", v.TypeName())
				}
				for _, el := range arr.Elems {
					s, ok := el.(String)
					if !ok {
						return nil, errType(pos, "string extensions", el.TypeName())
					}
					opts.Extensions = append(opts.Extensions, string(s))
				}
			}
			if v, found := obj.Get("recursive"); found {
				opts.Recursive = v.Truthy()
			}
		}
		count, err := handle.KB.Index(ctx, opts)
		if err != nil {
			return nil, &RuntimeError{Kind: ErrRuntime, Pos: pos, Message: "indexing failed: " + err.Error()}
		}
		return Number(count), nil

	case "search":
		if len(args) < 1 || len(args) > 2 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "search takes a query and an optional limit"}
		}
		query, ok := args[0].(String)
		if !ok {
			return nil, errType(pos, "a string query", args[0].TypeName())
		}
		limit := DefaultChunkLimit
		if len(args) == 2 {
			n, ok := args[1].(Number)
			if !ok {
				return nil, errType(pos, "a number limit", args[1].TypeName())
			}
			limit = int(n)
		}
		hits, err := handle.KB.Search(ctx, string(query), limit, 0)
		if err != nil {
			return nil, &RuntimeError{Kind: ErrRuntime, Pos: pos, Message: "search failed: " + err.Error()}
		}
		out := &Array{Elems: make([]Value, len(hits))}
		for i, hit := range hits {
			entry := NewObject()
			entry.Set("text", String(hit.Text))
			entry.Set("source", String(hit.Source))
			entry.Set("score", Number(hit.Score))
			out.Elems[i] = entry
		}
		return out, nil

	case "isIndexed":
		if len(args) != 0 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "isIndexed takes no arguments"}
		}
		indexed, err := handle.KB.IsIndexed(ctx)
		if err != nil {
			return nil, &RuntimeError{Kind: ErrRuntime, Pos: pos, Message: err.Error()}
		}
		return Bool(indexed), nil

	default:
		return nil, unknownMethod(handle, method, pos)
	}
}

func (in *Interpreter) evalMatch(ctx context.Context, e *ast.MatchExpr, env *Env) (Value, error) {
	subject, err := in.eval(ctx, e.Subject, env)
	if err != nil {
		return nil, err
	}

	for i := range e.Arms {
		arm := &e.Arms[i]
		scope, matched, err := in.matchPattern(ctx, subject, &arm.Pattern, env)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		if arm.Expr != nil {
			return in.eval(ctx, arm.Expr, scope)
		}
		if err := in.execBlock(ctx, arm.Body, scope); err != nil {
			if ret, ok := err.(returnSignal); ok { //nolint:errorlint
				return nil, ret
			}
			return nil, err
		}
		return Null{}, nil
	}

	return nil, &RuntimeError{
		Kind:    ErrNoMatch,
		Pos:     e.Position,
		Message: fmt.Sprintf("no arm matched %s", subject.String()),
		Fields:  map[string]Value{"subject": subject},
	}
}

// matchPattern tests one arm. On a match it returns the scope the arm body
// runs in, with payload bindings defined.
func (in *Interpreter) matchPattern(ctx context.Context, subject Value, pat *ast.MatchPattern, env *Env) (*Env, bool, error) {
	if pat.Wildcard {
		return env.Child(), true, nil
	}

	if pat.Literal != nil {
		lit, err := in.eval(ctx, pat.Literal, env)
		if err != nil {
			return nil, false, err
		}
		return env.Child(), Equal(subject, lit), nil
	}

	ev, ok := subject.(*EnumValue)
	if !ok {
		return nil, false, nil
	}
	if pat.EnumName != "" && pat.EnumName != ev.Enum {
		return nil, false, nil
	}
	if pat.Variant != ev.Variant {
		return nil, false, nil
	}
	if len(pat.Bindings) > 0 && len(pat.Bindings) != len(ev.Payload) {
		return nil, false, &RuntimeError{
			Kind:    ErrArity,
			Pos:     pat.Position,
			Message: fmt.Sprintf("pattern %s.%s binds %d values, variant carries %d", ev.Enum, ev.Variant, len(pat.Bindings), len(ev.Payload)),
		}
	}

	scope := env.Child()
	for i, name := range pat.Bindings {
		if name == "_" {
			continue
		}
		scope.Define(name, ev.Payload[i])
	}
	return scope, true, nil
}
