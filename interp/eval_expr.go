package interp

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/strandlang/strand/ast"
)

func (in *Interpreter) eval(ctx context.Context, expr ast.Expression, env *Env) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch e := expr.(type) {
	case *ast.NumberLit:
		return Number(e.Value), nil

	case *ast.BoolLit:
		return Bool(e.Value), nil

	case *ast.NullLit:
		return Null{}, nil

	case *ast.StringLit:
		return in.evalString(ctx, e, env)

	case *ast.Ident:
		if v, ok := env.Get(e.Name); ok {
			return v, nil
		}
		if b, ok := builtins[e.Name]; ok {
			return b, nil
		}
		if _, ok := in.enums[e.Name]; ok {
			return &enumRef{name: e.Name}, nil
		}
		return nil, errUndefined(e.Position, e.Name)

	case *ast.ArrayLit:
		arr := &Array{Elems: make([]Value, len(e.Elements))}
		for i, el := range e.Elements {
			v, err := in.eval(ctx, el, env)
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = v
		}
		return arr, nil

	case *ast.ObjectLit:
		obj := NewObject()
		for i, key := range e.Keys {
			v, err := in.eval(ctx, e.Values[i], env)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		return obj, nil

	case *ast.LambdaExpr:
		params := make([]ast.Param, len(e.Params))
		for i, name := range e.Params {
			params[i] = ast.Param{Name: name}
		}
		return &Closure{kind: closureLambda, params: params, body: e.Body, expr: e.Expr, env: env}, nil

	case *ast.UnaryExpr:
		operand, err := in.eval(ctx, e.Operand, env)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "!":
			return Bool(!operand.Truthy()), nil
		case "-":
			n, ok := operand.(Number)
			if !ok {
				return nil, errType(e.Position, "a number to negate", operand.TypeName())
			}
			return Number(-float64(n)), nil
		}
		return nil, &RuntimeError{Kind: ErrRuntime, Pos: e.Position, Message: "unknown unary operator " + e.Op}

	case *ast.BinaryExpr:
		return in.evalBinary(ctx, e, env)

	case *ast.MemberExpr:
		return in.evalMember(ctx, e, env)

	case *ast.IndexExpr:
		return in.evalIndex(ctx, e, env)

	case *ast.CallExpr:
		callee, err := in.eval(ctx, e.Callee, env)
		if err != nil {
			return nil, err
		}
		args, err := in.evalArgs(ctx, e.Args, env)
		if err != nil {
			return nil, err
		}
		return in.apply(ctx, callee, args, e.Position)

	case *ast.MethodCallExpr:
		return in.evalMethodCall(ctx, e, env)

	case *ast.MatchExpr:
		return in.evalMatch(ctx, e, env)

	default:
		return nil, &RuntimeError{Kind: ErrRuntime, Pos: expr.Pos(), Message: fmt.Sprintf("unsupported expression %T", expr)}
	}
}

func (in *Interpreter) evalString(ctx context.Context, e *ast.StringLit, env *Env) (Value, error) {
	if text, ok := e.Static(); ok {
		return String(text), nil
	}
	var sb strings.Builder
	for _, part := range e.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Text)
			continue
		}
		v, err := in.eval(ctx, part.Expr, env)
		if err != nil {
			return nil, err
		}
		sb.WriteString(v.String())
	}
	return String(sb.String()), nil
}

func (in *Interpreter) evalArgs(ctx context.Context, exprs []ast.Expression, env *Env) ([]Value, error) {
	args := make([]Value, len(exprs))
	for i, a := range exprs {
		v, err := in.eval(ctx, a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (in *Interpreter) evalBinary(ctx context.Context, e *ast.BinaryExpr, env *Env) (Value, error) {
	// && and || evaluate the right operand only when needed.
	switch e.Op {
	case "&&":
		left, err := in.eval(ctx, e.Left, env)
		if err != nil {
			return nil, err
		}
		if !left.Truthy() {
			return Bool(false), nil
		}
		right, err := in.eval(ctx, e.Right, env)
		if err != nil {
			return nil, err
		}
		return Bool(right.Truthy()), nil
	case "||":
		left, err := in.eval(ctx, e.Left, env)
		if err != nil {
			return nil, err
		}
		if left.Truthy() {
			return Bool(true), nil
		}
		right, err := in.eval(ctx, e.Right, env)
		if err != nil {
			return nil, err
		}
		return Bool(right.Truthy()), nil
	}

	left, err := in.eval(ctx, e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(ctx, e.Right, env)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "==":
		return Bool(Equal(left, right)), nil
	case "!=":
		return Bool(!Equal(left, right)), nil
	}

	// + concatenates when either side is a string.
	if e.Op == "+" {
		if ls, ok := left.(String); ok {
			return String(string(ls) + right.String()), nil
		}
		if rs, ok := right.(String); ok {
			return String(left.String() + string(rs)), nil
		}
		if la, ok := left.(*Array); ok {
			if ra, ok := right.(*Array); ok {
				out := &Array{Elems: make([]Value, 0, len(la.Elems)+len(ra.Elems))}
				out.Elems = append(out.Elems, la.Elems...)
				out.Elems = append(out.Elems, ra.Elems...)
				return out, nil
			}
		}
	}

	ln, lok := left.(Number)
	rn, rok := right.(Number)

	switch e.Op {
	case "+", "-", "*", "/", "%":
		if !lok || !rok {
			return nil, errType(e.Position, fmt.Sprintf("numbers for '%s'", e.Op), left.TypeName()+" and "+right.TypeName())
		}
		switch e.Op {
		case "+":
			return Number(float64(ln) + float64(rn)), nil
		case "-":
			return Number(float64(ln) - float64(rn)), nil
		case "*":
			return Number(float64(ln) * float64(rn)), nil
		case "/":
			if float64(rn) == 0 {
				return nil, &RuntimeError{Kind: ErrRuntime, Pos: e.Position, Message: "division by zero"}
			}
			return Number(float64(ln) / float64(rn)), nil
		case "%":
			if float64(rn) == 0 {
				return nil, &RuntimeError{Kind: ErrRuntime, Pos: e.Position, Message: "division by zero"}
			}
			return Number(math.Mod(float64(ln), float64(rn))), nil
		}

	case "<", "<=", ">", ">=":
		if lok && rok {
			switch e.Op {
			case "<":
				return Bool(ln < rn), nil
			case "<=":
				return Bool(ln <= rn), nil
			case ">":
				return Bool(ln > rn), nil
			case ">=":
				return Bool(ln >= rn), nil
			}
		}
		ls, lsok := left.(String)
		rs, rsok := right.(String)
		if lsok && rsok {
			switch e.Op {
			case "<":
				return Bool(ls < rs), nil
			case "<=":
				return Bool(ls <= rs), nil
			case ">":
				return Bool(ls > rs), nil
			case ">=":
				return Bool(ls >= rs), nil
			}
		}
		return nil, errType(e.Position, fmt.Sprintf("two numbers or two strings for '%s'", e.Op), left.TypeName()+" and "+right.TypeName())
	}

	return nil, &RuntimeError{Kind: ErrRuntime, Pos: e.Position, Message: "unknown operator " + e.Op}
}

// enumRef is the transient value of a bare enum name before member access.
type enumRef struct{ name string }

func (*enumRef) TypeName() string { return "Enum" }
func (*enumRef) Truthy() bool     { return true }
func (r *enumRef) String() string { return "<enum " + r.name + ">" }

func (in *Interpreter) evalMember(ctx context.Context, e *ast.MemberExpr, env *Env) (Value, error) {
	// Enum.Variant resolves against the enum registry before general member
	// lookup so enum names never need a runtime binding.
	if ident, ok := e.Receiver.(*ast.Ident); ok {
		if decl, isEnum := in.enums[ident.Name]; isEnum {
			if _, shadowed := env.Get(ident.Name); !shadowed {
				return in.enumMember(decl, e.Member, e.Position)
			}
		}
	}

	recv, err := in.eval(ctx, e.Receiver, env)
	if err != nil {
		return nil, err
	}

	switch r := recv.(type) {
	case *Object:
		if v, ok := r.Get(e.Member); ok {
			return v, nil
		}
		return Null{}, nil
	case *StructInstance:
		if v, ok := r.Fields.Get(e.Member); ok {
			return v, nil
		}
		return Null{}, nil
	case *enumRef:
		decl := in.enums[r.name]
		return in.enumMember(decl, e.Member, e.Position)
	default:
		return nil, errType(e.Position, "an object for member access", recv.TypeName())
	}
}

func (in *Interpreter) enumMember(decl *ast.EnumDecl, member string, pos ast.Pos) (Value, error) {
	for _, variant := range decl.Variants {
		if variant.Name != member {
			continue
		}
		if len(variant.Fields) == 0 {
			return &EnumValue{Enum: decl.Name, Variant: variant.Name}, nil
		}
		return &EnumConstructor{Enum: decl.Name, Variant: variant.Name, Arity: len(variant.Fields)}, nil
	}
	return nil, &RuntimeError{
		Kind:    ErrUndefined,
		Pos:     pos,
		Message: fmt.Sprintf("enum %s has no variant '%s'", decl.Name, member),
	}
}

func (in *Interpreter) evalIndex(ctx context.Context, e *ast.IndexExpr, env *Env) (Value, error) {
	recv, err := in.eval(ctx, e.Receiver, env)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(ctx, e.Index, env)
	if err != nil {
		return nil, err
	}

	switch r := recv.(type) {
	case *Array:
		n, ok := idx.(Number)
		if !ok {
			return nil, errType(e.Position, "a number index", idx.TypeName())
		}
		i := int(n)
		if i < 0 || i >= len(r.Elems) {
			return nil, &RuntimeError{
				Kind:    ErrRuntime,
				Pos:     e.Position,
				Message: fmt.Sprintf("index %d out of bounds for array of length %d", i, len(r.Elems)),
			}
		}
		return r.Elems[i], nil

	case String:
		n, ok := idx.(Number)
		if !ok {
			return nil, errType(e.Position, "a number index", idx.TypeName())
		}
		runes := []rune(string(r))
		i := int(n)
		if i < 0 || i >= len(runes) {
			return nil, &RuntimeError{
				Kind:    ErrRuntime,
				Pos:     e.Position,
				Message: fmt.Sprintf("index %d out of bounds for string of length %d", i, len(runes)),
			}
		}
		return String(string(runes[i])), nil

	case *Object:
		key, ok := idx.(String)
		if !ok {
			return nil, errType(e.Position, "a string key", idx.TypeName())
		}
		if v, found := r.Get(string(key)); found {
			return v, nil
		}
		return Null{}, nil

	default:
		return nil, &RuntimeError{Kind: ErrNotIndexable, Pos: e.Position, Message: recv.TypeName() + " is not indexable"}
	}
}

// apply invokes a callable value with already-evaluated arguments.
func (in *Interpreter) apply(ctx context.Context, callee Value, args []Value, pos ast.Pos) (Value, error) {
	switch c := callee.(type) {
	case *Closure:
		return in.call(ctx, c, args, pos)

	case builtinFn:
		return c.fn(in, args, pos)

	case *EnumConstructor:
		if len(args) != c.Arity {
			return nil, &RuntimeError{
				Kind:    ErrArity,
				Pos:     pos,
				Message: fmt.Sprintf("%s.%s expects %d arguments, got %d", c.Enum, c.Variant, c.Arity, len(args)),
			}
		}
		return &EnumValue{Enum: c.Enum, Variant: c.Variant, Payload: args}, nil

	case *AgentHandle:
		// Agent("input") is shorthand for Agent.run("input").
		if len(args) != 1 {
			return nil, &RuntimeError{Kind: ErrArity, Pos: pos, Message: "an agent call takes exactly one input argument"}
		}
		input, ok := args[0].(String)
		if !ok {
			return nil, errType(pos, "a string input for agent "+c.Name, args[0].TypeName())
		}
		return in.runAgent(ctx, c, string(input), true, pos)

	default:
		return nil, &RuntimeError{Kind: ErrNotCallable, Pos: pos, Message: callee.TypeName() + " is not callable"}
	}
}

// call executes a function, tool, or lambda closure.
func (in *Interpreter) call(ctx context.Context, c *Closure, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != len(c.params) {
		name := c.name
		if name == "" {
			name = "lambda"
		}
		return nil, &RuntimeError{
			Kind:    ErrArity,
			Pos:     pos,
			Message: fmt.Sprintf("%s expects %d arguments, got %d", name, len(c.params), len(args)),
		}
	}

	scope := c.env.Child()
	for i, p := range c.params {
		if p.Type != nil {
			if err := checkValueType(args[i], p.Type, p.Name, pos); err != nil {
				return nil, err
			}
		}
		scope.Define(p.Name, args[i])
	}

	if c.expr != nil {
		return in.eval(ctx, c.expr, scope)
	}

	err := in.execBlock(ctx, c.body, scope)
	if err == nil {
		return Null{}, nil
	}
	if ret, ok := err.(returnSignal); ok { //nolint:errorlint
		return ret.value, nil
	}
	return nil, err
}

// checkValueType enforces a parameter annotation against a runtime value.
// `any`, `object`, and named types admit structured values loosely; the
// scalar annotations are strict.
func checkValueType(v Value, t *ast.TypeRef, param string, pos ast.Pos) error {
	ok := true
	switch t.Kind {
	case ast.TypeString:
		_, ok = v.(String)
	case ast.TypeNumber:
		_, ok = v.(Number)
	case ast.TypeBoolean:
		_, ok = v.(Bool)
	case ast.TypeArray, ast.TypeArrayOf:
		_, ok = v.(*Array)
	case ast.TypeObject, ast.TypeInline:
		switch v.(type) {
		case *Object, *StructInstance:
		default:
			ok = false
		}
	case ast.TypeAny, ast.TypeNamed:
		// Named struct/enum arguments arrive as plain objects from model tool
		// calls; accept any structured shape.
	}
	if !ok {
		return errType(pos, fmt.Sprintf("%s for parameter '%s'", t.String(), param), v.TypeName())
	}
	if t.Kind == ast.TypeArrayOf && t.Elem != nil {
		arr := v.(*Array)
		for _, el := range arr.Elems {
			if err := checkValueType(el, t.Elem, param, pos); err != nil {
				return err
			}
		}
	}
	return nil
}

func (in *Interpreter) runAgent(ctx context.Context, agent *AgentHandle, input string, hasInput bool, pos ast.Pos) (Value, error) {
	if in.runner == nil {
		return nil, &RuntimeError{Kind: ErrConfig, Pos: pos, Message: "no agent runner configured"}
	}
	start := time.Now()
	v, err := in.runner.RunAgent(ctx, agent, input, hasInput)
	if err != nil {
		in.log.Debug("agent run failed",
			"agent", agent.Name,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}
	in.log.Debug("agent run complete", "agent", agent.Name, "duration", time.Since(start))
	return v, nil
}

func (in *Interpreter) runParallel(ctx context.Context, handle *ParallelHandle, pos ast.Pos) (Value, error) {
	if in.runner == nil {
		return nil, &RuntimeError{Kind: ErrConfig, Pos: pos, Message: "no agent runner configured"}
	}

	agents := make([]*AgentHandle, len(handle.Agents))
	for i, expr := range handle.Agents {
		v, err := in.eval(ctx, expr, handle.Env)
		if err != nil {
			return nil, err
		}
		agent, ok := v.(*AgentHandle)
		if !ok {
			return nil, errType(expr.Pos(), "an agent in parallel block "+handle.Name, v.TypeName())
		}
		agents[i] = agent
	}

	results := in.runner.RunParallel(ctx, agents, time.Duration(handle.Timeout)*time.Millisecond)

	out := &Array{Elems: make([]Value, len(results))}
	failures := 0
	for i, res := range results {
		if res.Err != nil {
			failures++
			slot := Catchable(res.Err)
			slot.Set("error", Bool(true))
			slot.Set("agent", String(agents[i].Name))
			out.Elems[i] = slot
			continue
		}
		out.Elems[i] = res.Value
	}

	// The block only raises when nothing succeeded; partial failure is
	// reported in-band so callers can inspect each slot.
	if len(results) > 0 && failures == len(results) {
		return nil, &RuntimeError{
			Kind:    ErrRuntime,
			Pos:     pos,
			Message: fmt.Sprintf("all %d agents in parallel block %s failed: %s", len(results), handle.Name, results[0].Err.Error()),
			Fields:  map[string]Value{"results": out},
		}
	}
	return out, nil
}
