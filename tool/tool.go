package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/internal/registry"
)

// ExecuteFunc runs a tool. Arguments arrive as the raw JSON object produced
// by the model; the result is the text handed back to the conversation.
type ExecuteFunc func(ctx context.Context, args []byte) (string, error)

// Definition describes one tool an agent may call: its name, a description
// shown to the model, the JSON schema of its arguments, and the executor.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
	Execute     ExecuteFunc
}

// Parameter is one declared tool parameter.
type Parameter struct {
	Name string
	Type *ast.TypeRef
}

// Schema renders the parameter list as the JSON schema providers attach to a
// tool declaration. Every declared parameter is required.
func (d Definition) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
	var required []string
	for _, p := range d.Parameters {
		prop := TypeSchema(p.Type)
		prop.Description = "Parameter " + p.Name
		schema.Properties.Set(p.Name, prop)
		required = append(required, p.Name)
	}
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

// TypeSchema converts a type annotation into a JSON schema node.
func TypeSchema(t *ast.TypeRef) *jsonschema.Schema {
	if t == nil {
		return &jsonschema.Schema{}
	}
	switch t.Kind {
	case ast.TypeString:
		return &jsonschema.Schema{Type: "string"}
	case ast.TypeNumber:
		return &jsonschema.Schema{Type: "number"}
	case ast.TypeBoolean:
		return &jsonschema.Schema{Type: "boolean"}
	case ast.TypeArray:
		return &jsonschema.Schema{Type: "array"}
	case ast.TypeArrayOf:
		return &jsonschema.Schema{Type: "array", Items: TypeSchema(t.Elem)}
	case ast.TypeInline:
		return FieldsSchema(t.Fields)
	case ast.TypeObject, ast.TypeNamed:
		return &jsonschema.Schema{Type: "object"}
	default:
		return &jsonschema.Schema{}
	}
}

// FieldsSchema builds the object schema for a struct field list. It is also
// used for agents' structured output schemas.
func FieldsSchema(fields []ast.StructField) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
	var required []string
	for _, f := range fields {
		schema.Properties.Set(f.Name, TypeSchema(f.Type))
		required = append(required, f.Name)
	}
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

// ArgumentError reports model-supplied arguments that do not fit a tool's
// declared parameters.
type ArgumentError struct {
	Tool   string
	Detail string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.Tool, e.Detail)
}

// Registry holds the tools a program has declared, keyed by name.
type Registry struct {
	defs registry.Registry[Definition]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: registry.New[Definition]()}
}

// Add registers a definition, replacing any previous tool of the same name.
func (r *Registry) Add(def Definition) {
	r.defs.Add(def.Name, def)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Definition, bool) {
	return r.defs.Get(name)
}

// Names returns the registered tool names, sorted for stable output.
func (r *Registry) Names() []string {
	names := r.defs.Names()
	sort.Strings(names)
	return names
}

// Len is the number of registered tools.
func (r *Registry) Len() int {
	return r.defs.Len()
}

// Resolve maps an agent's declared tool list to definitions, failing on the
// first unknown name.
func (r *Registry) Resolve(names []string) ([]Definition, error) {
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		def, ok := r.defs.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
