package interp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/kb"
)

// Value is a runtime value. Values are immutable once produced; composite
// values are shared by reference and the grammar admits no cyclic literals.
type Value interface {
	// TypeName is the user-facing type name used in diagnostics.
	TypeName() string
	// Truthy reports the value's boolean interpretation.
	Truthy() bool
	// String renders the value the way print shows it.
	String() string
}

// Null is the null value.
type Null struct{}

func (Null) TypeName() string { return "Null" }
func (Null) Truthy() bool     { return false }
func (Null) String() string   { return "null" }

// Bool is a boolean value.
type Bool bool

func (Bool) TypeName() string { return "Boolean" }
func (b Bool) Truthy() bool   { return bool(b) }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Number is a numeric value. Strand numbers are float64.
type Number float64

func (Number) TypeName() string { return "Number" }
func (n Number) Truthy() bool   { return float64(n) != 0 }

func (n Number) String() string {
	f := float64(n)
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// String is a string value. Indexing and length operate on Unicode scalar
// values, not bytes.
type String string

func (String) TypeName() string { return "String" }
func (s String) Truthy() bool   { return len(s) != 0 }
func (s String) String() string { return string(s) }

// Array is an ordered sequence of values.
type Array struct {
	Elems []Value
}

func (*Array) TypeName() string { return "Array" }
func (a *Array) Truthy() bool   { return len(a.Elems) != 0 }

func (a *Array) String() string {
	parts := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Object maps string keys to values, preserving insertion order.
type Object struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{fields: orderedmap.New[string, Value]()}
}

func (*Object) TypeName() string { return "Object" }
func (o *Object) Truthy() bool   { return o.fields.Len() != 0 }

func (o *Object) String() string {
	var parts []string
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, pair.Key+": "+pair.Value.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Set binds a key, appending it to the insertion order if new.
func (o *Object) Set(key string, v Value) { o.fields.Set(key, v) }

// Get looks up a key.
func (o *Object) Get(key string) (Value, bool) { return o.fields.Get(key) }

// Len is the number of keys.
func (o *Object) Len() int { return o.fields.Len() }

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.fields.Len())
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Entries calls fn for each key/value pair in insertion order.
func (o *Object) Entries(fn func(key string, v Value)) {
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// StructInstance is a struct-typed object.
type StructInstance struct {
	Type   string
	Fields *Object
}

func (s *StructInstance) TypeName() string { return s.Type }
func (s *StructInstance) Truthy() bool     { return true }
func (s *StructInstance) String() string   { return s.Fields.String() }

// EnumValue is an instance of an enum variant with its payload.
type EnumValue struct {
	Enum    string
	Variant string
	Payload []Value
}

func (e *EnumValue) TypeName() string { return e.Enum + "." + e.Variant }
func (e *EnumValue) Truthy() bool     { return true }

func (e *EnumValue) String() string {
	if len(e.Payload) == 0 {
		return e.Enum + "." + e.Variant
	}
	parts := make([]string, len(e.Payload))
	for i, v := range e.Payload {
		parts[i] = v.String()
	}
	return e.Enum + "." + e.Variant + "(" + strings.Join(parts, ", ") + ")"
}

// EnumConstructor is the intermediate value of `Enum.Variant` before it is
// applied to payload arguments.
type EnumConstructor struct {
	Enum    string
	Variant string
	Arity   int
}

func (c *EnumConstructor) TypeName() string {
	return "EnumConstructor(" + c.Enum + "." + c.Variant + ")"
}
func (c *EnumConstructor) Truthy() bool { return true }
func (c *EnumConstructor) String() string {
	return "<enum constructor " + c.Enum + "." + c.Variant + ">"
}

// closureKind discriminates the three callable declaration forms.
type closureKind int

const (
	closureFn closureKind = iota
	closureTool
	closureLambda
)

// Closure pairs a callable declaration with its captured environment. The
// captured environment is shared, not copied, so later writes to outer
// bindings are visible per lexical scoping.
type Closure struct {
	kind   closureKind
	name   string
	params []ast.Param
	body   *ast.Block
	expr   ast.Expression // lambda expression bodies
	env    *Env
}

func (c *Closure) TypeName() string {
	switch c.kind {
	case closureTool:
		return "Tool"
	case closureLambda:
		return "Lambda"
	default:
		return "Function"
	}
}
func (c *Closure) Truthy() bool { return true }

func (c *Closure) String() string {
	switch c.kind {
	case closureTool:
		return "<tool " + c.name + ">"
	case closureLambda:
		return "<lambda>"
	default:
		return "<fn " + c.name + ">"
	}
}

// Name returns the declared name, empty for lambdas.
func (c *Closure) Name() string { return c.name }

// Params returns the declared parameters.
func (c *Closure) Params() []ast.Param { return c.params }

// AgentHandle is a declared agent plus accumulated call overrides such as a
// bound user prompt. Handles are immutable; overriding produces a copy.
type AgentHandle struct {
	Name               string
	SystemPrompt       string
	UserPrompt         string // bound default or override, empty if unset
	Model              string
	Provider           string
	Tools              []string
	MaxSteps           int
	Output             *ast.OutputSchema
	OutputFields       []ast.StructField // resolved schema fields
	OutputRetries      int
	RetryPrompt        string
	OutputInstructions string
	Knowledge          *KnowledgeConfig
}

func (*AgentHandle) TypeName() string { return "Agent" }
func (*AgentHandle) Truthy() bool     { return true }
func (a *AgentHandle) String() string { return "<agent " + a.Name + ">" }

// WithUserPrompt returns a copy of the handle with the user prompt bound.
func (a *AgentHandle) WithUserPrompt(prompt string) *AgentHandle {
	dup := *a
	dup.UserPrompt = prompt
	return &dup
}

// KnowledgeConfig is an agent's knowledge-base binding after evaluation.
type KnowledgeConfig struct {
	Source         kb.Searcher
	ChunkLimit     int
	ScoreThreshold float64
}

// ParallelHandle is a declared parallel block. The agent expressions are
// evaluated when the block runs, so agents configured after the declaration
// are picked up.
type ParallelHandle struct {
	Name    string
	Agents  []ast.Expression
	Timeout int64 // milliseconds
	Env     *Env
}

func (*ParallelHandle) TypeName() string { return "Parallel" }
func (*ParallelHandle) Truthy() bool     { return true }
func (p *ParallelHandle) String() string { return "<parallel " + p.Name + ">" }

// KnowledgeHandle wraps a knowledge base as a first-class value.
type KnowledgeHandle struct {
	Path string
	KB   kb.Base
}

func (*KnowledgeHandle) TypeName() string { return "KnowledgeBase" }
func (*KnowledgeHandle) Truthy() bool     { return true }
func (k *KnowledgeHandle) String() string { return "<knowledge base " + k.Path + ">" }

// Equal compares two values structurally. Closures, agents, and handles
// compare by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case *Array:
		bv, ok := b.(*Array)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		equal := true
		av.Entries(func(k string, v Value) {
			other, ok := bv.Get(k)
			if !ok || !Equal(v, other) {
				equal = false
			}
		})
		return equal
	case *StructInstance:
		bv, ok := b.(*StructInstance)
		return ok && av.Type == bv.Type && Equal(av.Fields, bv.Fields)
	case *EnumValue:
		bv, ok := b.(*EnumValue)
		if !ok || av.Enum != bv.Enum || av.Variant != bv.Variant || len(av.Payload) != len(bv.Payload) {
			return false
		}
		for i := range av.Payload {
			if !Equal(av.Payload[i], bv.Payload[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ToJSON serializes a value as JSON, preserving object key order. Handles
// and closures render as their display strings.
func ToJSON(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case *Array:
		doc := []byte("[]")
		for _, e := range val.Elems {
			raw, err := ToJSON(e)
			if err != nil {
				return nil, err
			}
			doc, err = sjson.SetRawBytes(doc, "-1", raw)
			if err != nil {
				return nil, err
			}
		}
		return doc, nil
	case *Object:
		return objectToJSON(val)
	case *StructInstance:
		return objectToJSON(val.Fields)
	case *EnumValue:
		if len(val.Payload) == 0 {
			return json.Marshal(val.Variant)
		}
		doc, err := sjson.SetBytes([]byte("{}"), "variant", val.Variant)
		if err != nil {
			return nil, err
		}
		payload, err := ToJSON(&Array{Elems: val.Payload})
		if err != nil {
			return nil, err
		}
		return sjson.SetRawBytes(doc, "payload", payload)
	case Bool:
		return json.Marshal(bool(val))
	case Number:
		return json.Marshal(float64(val))
	case String:
		return json.Marshal(string(val))
	default:
		return json.Marshal(v.String())
	}
}

func objectToJSON(o *Object) ([]byte, error) {
	doc := []byte("{}")
	var err error
	o.Entries(func(k string, v Value) {
		if err != nil {
			return
		}
		var raw []byte
		if raw, err = ToJSON(v); err != nil {
			return
		}
		doc, err = sjson.SetRawBytes(doc, escapePath(k), raw)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// escapePath protects keys from sjson path syntax.
func escapePath(key string) string {
	if !strings.ContainsAny(key, ".*?|#@\\") {
		return key
	}
	var sb strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// FromJSON converts JSON text into a value, preserving object key order.
func FromJSON(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", truncate(string(data), 80))
	}
	return fromGJSON(gjson.ParseBytes(data)), nil
}

func fromGJSON(r gjson.Result) Value {
	switch {
	case r.Type == gjson.Null:
		return Null{}
	case r.Type == gjson.True:
		return Bool(true)
	case r.Type == gjson.False:
		return Bool(false)
	case r.Type == gjson.Number:
		return Number(r.Num)
	case r.Type == gjson.String:
		return String(r.Str)
	case r.IsArray():
		arr := &Array{}
		r.ForEach(func(_, item gjson.Result) bool {
			arr.Elems = append(arr.Elems, fromGJSON(item))
			return true
		})
		return arr
	case r.IsObject():
		obj := NewObject()
		r.ForEach(func(key, item gjson.Result) bool {
			obj.Set(key.Str, fromGJSON(item))
			return true
		})
		return obj
	default:
		return Null{}
	}
}

// FromGo converts a decoded Go value (as produced by encoding/json into any)
// into a runtime value. Map keys are sorted for determinism; prefer FromJSON
// when the original text is available.
func FromGo(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case string:
		return String(val)
	case []any:
		arr := &Array{Elems: make([]Value, len(val))}
		for i, e := range val {
			arr.Elems[i] = FromGo(e)
		}
		return arr
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, FromGo(val[k]))
		}
		return obj
	default:
		return String(fmt.Sprintf("%v", val))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
