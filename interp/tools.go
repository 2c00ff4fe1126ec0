package interp

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/tool"
)

// userToolDefinition exposes a declared tool to agents. The executor decodes
// the model's JSON arguments against the declared parameters, runs the tool
// body in its captured scope, and renders the result for the conversation.
func (in *Interpreter) userToolDefinition(decl *ast.ToolDecl, closure *Closure) tool.Definition {
	params := make([]tool.Parameter, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = tool.Parameter{Name: p.Name, Type: p.Type}
	}

	return tool.Definition{
		Name:        decl.Name,
		Description: "User-defined tool " + decl.Name,
		Parameters:  params,
		Execute: func(ctx context.Context, argsJSON []byte) (string, error) {
			args, err := decodeToolArgs(decl, argsJSON)
			if err != nil {
				return "", err
			}
			result, err := in.call(ctx, closure, args, decl.Position)
			if err != nil {
				return "", err
			}
			return renderToolResult(result)
		},
	}
}

// decodeToolArgs maps a JSON argument object onto the declared parameter
// list, in declaration order.
func decodeToolArgs(decl *ast.ToolDecl, argsJSON []byte) ([]Value, error) {
	if len(argsJSON) == 0 {
		argsJSON = []byte("{}")
	}
	if !gjson.ValidBytes(argsJSON) {
		return nil, &tool.ArgumentError{Tool: decl.Name, Detail: "arguments are not valid JSON"}
	}
	parsed := gjson.ParseBytes(argsJSON)
	if !parsed.IsObject() {
		return nil, &tool.ArgumentError{Tool: decl.Name, Detail: "arguments must be a JSON object"}
	}

	args := make([]Value, len(decl.Params))
	for i, p := range decl.Params {
		field := parsed.Get(p.Name)
		if !field.Exists() {
			return nil, &tool.ArgumentError{Tool: decl.Name, Detail: fmt.Sprintf("missing argument %q", p.Name)}
		}
		v := fromGJSON(field)
		if p.Type != nil {
			if err := checkValueType(v, p.Type, p.Name, decl.Position); err != nil {
				return nil, &tool.ArgumentError{Tool: decl.Name, Detail: fmt.Sprintf("argument %q is not %s", p.Name, p.Type.String())}
			}
		}
		args[i] = v
	}
	return args, nil
}

// renderToolResult formats a tool's return value as the text handed back to
// the model: strings verbatim, everything else as JSON.
func renderToolResult(v Value) (string, error) {
	switch r := v.(type) {
	case String:
		return string(r), nil
	case Null:
		return "null", nil
	default:
		data, err := ToJSON(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
