package interp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fogfish/opts"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/pkg/slogx"
	"github.com/strandlang/strand/provider"
	"github.com/strandlang/strand/tool"
)

// Runner executes agent invocations on behalf of the evaluator. The agent
// engine implements it; tests substitute deterministic fakes.
type Runner interface {
	// RunAgent performs one agent invocation and returns its final value.
	RunAgent(ctx context.Context, agent *AgentHandle, input string, hasInput bool) (Value, error)

	// RunParallel starts all invocations concurrently under one deadline and
	// returns one result per invocation, in input order.
	RunParallel(ctx context.Context, agents []*AgentHandle, timeout time.Duration) []BranchResult
}

// BranchResult is the outcome of one parallel branch: a value or an error,
// never both.
type BranchResult struct {
	Value Value
	Err   error
}

// Interpreter evaluates a parsed program. The tool registry and the parsed
// program are read-only after construction and safe to share across the
// concurrent branches the runner spawns.
type Interpreter struct {
	runner Runner
	tools  *tool.Registry
	stdout io.Writer
	log    *slog.Logger

	structs map[string][]ast.StructField
	enums   map[string]*ast.EnumDecl
}

var (
	// WithRunner sets the agent execution collaborator.
	WithRunner = opts.ForName[Interpreter, Runner]("runner")
	// WithStdout redirects print output, mainly for tests.
	WithStdout = opts.ForName[Interpreter, io.Writer]("stdout")
	// WithLogger overrides the default slog logger.
	WithLogger = opts.ForName[Interpreter, *slog.Logger]("log")
)

// WithTools sets the shared tool registry.
func WithTools(reg *tool.Registry) opts.Option[Interpreter] {
	return opts.Type[Interpreter](func(in *Interpreter) error {
		in.tools = reg
		return nil
	})
}

// New constructs an interpreter.
func New(options ...opts.Option[Interpreter]) (*Interpreter, error) {
	in := &Interpreter{
		stdout:  os.Stdout,
		log:     slog.Default().With(slogx.LoggerName("interp")),
		structs: make(map[string][]ast.StructField),
		enums:   make(map[string]*ast.EnumDecl),
	}
	if err := opts.Apply(in, options); err != nil {
		return nil, err
	}
	if in.tools == nil {
		in.tools = tool.NewRegistry()
	}
	return in, nil
}

// Tools exposes the registry shared with the agent engine.
func (in *Interpreter) Tools() *tool.Registry { return in.tools }

// Run evaluates a program top to bottom. Struct and enum declarations are
// collected in a first pass so agent and tool signatures may reference them
// regardless of declaration order.
func (in *Interpreter) Run(ctx context.Context, prog *ast.Program) error {
	env := NewEnv()
	in.collectTypes(prog)

	for _, stmt := range prog.Statements {
		if err := in.execStatement(ctx, stmt, env); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) collectTypes(prog *ast.Program) {
	for _, stmt := range prog.Statements {
		switch decl := stmt.(type) {
		case *ast.StructDecl:
			in.structs[decl.Name] = decl.Fields
		case *ast.EnumDecl:
			in.enums[decl.Name] = decl
		}
	}
}

func (in *Interpreter) execStatement(ctx context.Context, stmt ast.Statement, env *Env) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch s := stmt.(type) {
	case *ast.StructDecl, *ast.EnumDecl:
		// Collected up front; nothing to do at execution time.
		return nil

	case *ast.AgentDecl:
		in.log.Debug("declaring agent", slog.String("agent", s.Name))
		handle, err := in.buildAgentHandle(ctx, s, env)
		if err != nil {
			return err
		}
		env.Define(s.Name, handle)
		return nil

	case *ast.ToolDecl:
		in.log.Debug("declaring tool", slog.String("tool", s.Name))
		closure := &Closure{kind: closureTool, name: s.Name, params: s.Params, body: s.Body, env: env}
		if err := in.checkSignature(s.Params, s.ReturnType, s.Pos()); err != nil {
			return err
		}
		env.Define(s.Name, closure)
		in.tools.Add(in.userToolDefinition(s, closure))
		return nil

	case *ast.FnDecl:
		if err := in.checkSignature(s.Params, s.ReturnType, s.Pos()); err != nil {
			return err
		}
		env.Define(s.Name, &Closure{kind: closureFn, name: s.Name, params: s.Params, body: s.Body, env: env})
		return nil

	case *ast.ParallelDecl:
		env.Define(s.Name, &ParallelHandle{Name: s.Name, Agents: s.Agents, Timeout: s.TimeoutMS, Env: env})
		return nil

	case *ast.LetStmt:
		v, err := in.eval(ctx, s.Value, env)
		if err != nil {
			return err
		}
		env.Define(s.Name, v)
		return nil

	case *ast.AssignStmt:
		v, err := in.eval(ctx, s.Value, env)
		if err != nil {
			return err
		}
		if !env.Assign(s.Name, v) {
			return errUndefined(s.Pos(), s.Name)
		}
		return nil

	case *ast.ExpressionStmt:
		_, err := in.eval(ctx, s.Expr, env)
		return err

	case *ast.IfStmt:
		cond, err := in.eval(ctx, s.Condition, env)
		if err != nil {
			return err
		}
		if cond.Truthy() {
			return in.execBlock(ctx, s.Then, env.Child())
		}
		switch alt := s.Else.(type) {
		case nil:
			return nil
		case *ast.Block:
			return in.execBlock(ctx, alt, env.Child())
		default:
			return in.execStatement(ctx, alt, env)
		}

	case *ast.WhileStmt:
		for {
			cond, err := in.eval(ctx, s.Condition, env)
			if err != nil {
				return err
			}
			if !cond.Truthy() {
				return nil
			}
			if err := in.execBlock(ctx, s.Body, env.Child()); err != nil {
				switch err.(type) { //nolint:errorlint
				case breakSignal:
					return nil
				case continueSignal:
					continue
				}
				return err
			}
		}

	case *ast.ForInStmt:
		iterable, err := in.eval(ctx, s.Iterable, env)
		if err != nil {
			return err
		}
		items, err := iterationItems(iterable, s.Pos())
		if err != nil {
			return err
		}
		for _, item := range items {
			scope := env.Child()
			scope.Define(s.Name, item)
			if err := in.execBlock(ctx, s.Body, scope); err != nil {
				switch err.(type) { //nolint:errorlint
				case breakSignal:
					return nil
				case continueSignal:
					continue
				}
				return err
			}
		}
		return nil

	case *ast.TryStmt:
		err := in.execBlock(ctx, s.Body, env.Child())
		if err == nil {
			return nil
		}
		switch err.(type) { //nolint:errorlint
		case breakSignal, continueSignal, returnSignal:
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		scope := env.Child()
		scope.Define(s.CatchName, Catchable(err))
		return in.execBlock(ctx, s.Catch, scope)

	case *ast.ReturnStmt:
		var v Value = Null{}
		if s.Value != nil {
			var err error
			if v, err = in.eval(ctx, s.Value, env); err != nil {
				return err
			}
		}
		return returnSignal{value: v}

	case *ast.BreakStmt:
		return breakSignal{}

	case *ast.ContinueStmt:
		return continueSignal{}

	default:
		return &RuntimeError{Kind: ErrRuntime, Pos: stmt.Pos(), Message: fmt.Sprintf("unsupported statement %T", stmt)}
	}
}

func (in *Interpreter) execBlock(ctx context.Context, block *ast.Block, env *Env) error {
	for _, stmt := range block.Statements {
		if err := in.execStatement(ctx, stmt, env); err != nil {
			return err
		}
	}
	return nil
}

// iterationItems flattens an iterable for for-in: arrays iterate elements,
// objects iterate `{key, value}` entries in insertion order.
func iterationItems(v Value, pos ast.Pos) ([]Value, error) {
	switch it := v.(type) {
	case *Array:
		return it.Elems, nil
	case *Object:
		items := make([]Value, 0, it.Len())
		it.Entries(func(k string, val Value) {
			entry := NewObject()
			entry.Set("key", String(k))
			entry.Set("value", val)
			items = append(items, entry)
		})
		return items, nil
	case String:
		runes := []rune(string(it))
		items := make([]Value, len(runes))
		for i, r := range runes {
			items[i] = String(string(r))
		}
		return items, nil
	default:
		return nil, errType(pos, "an array, object, or string to iterate", v.TypeName())
	}
}

// buildAgentHandle evaluates an agent declaration into an immutable handle.
// The provider name is checked against the closed set of recognized backends
// here, so a bad declaration fails before any invocation.
func (in *Interpreter) buildAgentHandle(ctx context.Context, decl *ast.AgentDecl, env *Env) (*AgentHandle, error) {
	systemPrompt, err := in.evalToString(ctx, decl.SystemPrompt, env, "systemPrompt")
	if err != nil {
		return nil, err
	}
	handle := &AgentHandle{
		Name:               decl.Name,
		SystemPrompt:       systemPrompt,
		Model:              decl.Model,
		Provider:           decl.Provider,
		Tools:              decl.Tools,
		MaxSteps:           decl.MaxSteps,
		Output:             decl.Output,
		OutputRetries:      decl.OutputRetries,
		RetryPrompt:        decl.RetryPrompt,
		OutputInstructions: decl.OutputInstructions,
	}
	if handle.MaxSteps <= 0 {
		handle.MaxSteps = DefaultMaxSteps
	}
	if handle.OutputRetries < 0 {
		handle.OutputRetries = DefaultOutputRetries
	}

	if decl.Provider != "" && !provider.Known(decl.Provider) {
		return nil, &RuntimeError{
			Kind: ErrConfig,
			Pos:  decl.Pos(),
			Message: fmt.Sprintf("agent '%s': unknown provider '%s', supported providers: %s",
				decl.Name, decl.Provider, provider.SupportedList()),
		}
	}

	if decl.UserPrompt != nil {
		if handle.UserPrompt, err = in.evalToString(ctx, decl.UserPrompt, env, "userPrompt"); err != nil {
			return nil, err
		}
	}

	if decl.Output != nil {
		fields := decl.Output.Fields
		if !decl.Output.Inline() {
			declared, ok := in.structs[decl.Output.StructName]
			if !ok {
				return nil, &RuntimeError{
					Kind:    ErrConfig,
					Pos:     decl.Output.Position,
					Message: fmt.Sprintf("agent '%s': unknown output struct '%s'", decl.Name, decl.Output.StructName),
				}
			}
			fields = declared
		}
		handle.OutputFields = fields
	}

	if decl.Knowledge != nil {
		source, err := in.eval(ctx, decl.Knowledge.Source, env)
		if err != nil {
			return nil, err
		}
		kh, ok := source.(*KnowledgeHandle)
		if !ok {
			return nil, errType(decl.Knowledge.Position, "a knowledge base as knowledge source", source.TypeName())
		}
		handle.Knowledge = &KnowledgeConfig{
			Source:         kh.KB,
			ChunkLimit:     decl.Knowledge.ChunkLimit,
			ScoreThreshold: decl.Knowledge.ScoreThreshold,
		}
		if handle.Knowledge.ChunkLimit <= 0 {
			handle.Knowledge.ChunkLimit = DefaultChunkLimit
		}
	}

	return handle, nil
}

// Engine-facing defaults.
const (
	DefaultMaxSteps      = 10
	DefaultOutputRetries = 1
	DefaultChunkLimit    = 3
)

func (in *Interpreter) evalToString(ctx context.Context, expr ast.Expression, env *Env, what string) (string, error) {
	v, err := in.eval(ctx, expr, env)
	if err != nil {
		return "", err
	}
	s, ok := v.(String)
	if !ok {
		return "", errType(expr.Pos(), "a string for "+what, v.TypeName())
	}
	return string(s), nil
}

// checkSignature verifies that parameter and return annotations resolve to
// known builtin or declared types.
func (in *Interpreter) checkSignature(params []ast.Param, ret *ast.TypeRef, pos ast.Pos) error {
	check := func(tr *ast.TypeRef) error {
		for tr != nil && tr.Kind == ast.TypeArrayOf {
			tr = tr.Elem
		}
		if tr == nil || tr.Kind != ast.TypeNamed {
			return nil
		}
		if _, ok := in.structs[tr.Name]; ok {
			return nil
		}
		if _, ok := in.enums[tr.Name]; ok {
			return nil
		}
		return &RuntimeError{Kind: ErrType, Pos: tr.Position, Message: fmt.Sprintf("unknown type '%s'", tr.Name)}
	}
	for _, p := range params {
		if err := check(p.Type); err != nil {
			return err
		}
	}
	return check(ret)
}
