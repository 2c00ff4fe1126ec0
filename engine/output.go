package engine

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/interp"
	"github.com/strandlang/strand/tool"
)

const defaultRetryPrompt = "Your previous response did not match the required schema. %s. Respond with ONLY a valid JSON object matching the schema, no prose."

// outputInstructions renders the system prompt suffix that asks the model
// for schema-conforming JSON.
func outputInstructions(agent *interp.AgentHandle) string {
	if agent.OutputInstructions != "" {
		return agent.OutputInstructions
	}

	schema := tool.FieldsSchema(agent.OutputFields)
	rendered, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		rendered = []byte("{}")
	}
	return "Respond with ONLY a JSON object matching this schema, no prose before or after it:\n" + string(rendered)
}

func retryPrompt(agent *interp.AgentHandle, validationErr error) string {
	if agent.RetryPrompt != "" {
		return agent.RetryPrompt
	}
	return fmt.Sprintf(defaultRetryPrompt, validationErr.Error())
}

// decodeStructured extracts a JSON object from the model's text, validates it
// against the declared fields, and converts it to a runtime value.
func decodeStructured(text string, fields []ast.StructField) (interp.Value, error) {
	doc, ok := extractJSON(text)
	if !ok {
		return nil, fmt.Errorf("response contains no JSON object")
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonTypeName(doc))
	}
	if err := validateFields(fields, doc, ""); err != nil {
		return nil, err
	}
	return interp.FromJSON([]byte(doc.Raw))
}

// extractJSON finds the JSON document in a model response. Models wrap JSON
// in prose or markdown fences often enough that all three forms are tried.
func extractJSON(text string) (gjson.Result, bool) {
	trimmed := strings.TrimSpace(text)
	if gjson.Valid(trimmed) && trimmed != "" {
		return gjson.Parse(trimmed), true
	}

	if fenced, ok := stripFence(trimmed); ok && gjson.Valid(fenced) {
		return gjson.Parse(fenced), true
	}

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if gjson.Valid(candidate) {
			return gjson.Parse(candidate), true
		}
	}

	return gjson.Result{}, false
}

func stripFence(text string) (string, bool) {
	if !strings.HasPrefix(text, "```") {
		return "", false
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the language tag line, e.g. ```json
		body = body[nl+1:]
	}
	end := strings.LastIndex(body, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}

// validateFields checks every declared field for presence and type. Paths in
// error messages use dotted and indexed notation, e.g. 'a.b' and 'f[0]'.
func validateFields(fields []ast.StructField, doc gjson.Result, prefix string) error {
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		value := doc.Get(f.Name)
		if !value.Exists() {
			return fmt.Errorf("missing required field: '%s'", path)
		}
		if err := validateType(f.Type, value, path); err != nil {
			return err
		}
	}
	return nil
}

func validateType(t *ast.TypeRef, value gjson.Result, path string) error {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case ast.TypeString:
		if value.Type != gjson.String {
			return typeMismatch(path, "string", value)
		}
	case ast.TypeNumber:
		if value.Type != gjson.Number {
			return typeMismatch(path, "number", value)
		}
	case ast.TypeBoolean:
		if value.Type != gjson.True && value.Type != gjson.False {
			return typeMismatch(path, "boolean", value)
		}
	case ast.TypeArray:
		if !value.IsArray() {
			return typeMismatch(path, "array", value)
		}
	case ast.TypeObject:
		if !value.IsObject() {
			return typeMismatch(path, "object", value)
		}
	case ast.TypeArrayOf:
		if !value.IsArray() {
			return typeMismatch(path, t.String(), value)
		}
		var elemErr error
		i := 0
		value.ForEach(func(_, elem gjson.Result) bool {
			elemErr = validateType(t.Elem, elem, fmt.Sprintf("%s[%d]", path, i))
			i++
			return elemErr == nil
		})
		if elemErr != nil {
			return elemErr
		}
	case ast.TypeInline:
		if !value.IsObject() {
			return typeMismatch(path, "object", value)
		}
		return validateFields(t.Fields, value, path)
	case ast.TypeAny, ast.TypeNamed:
		// Named references are resolved by the evaluator for the top-level
		// schema; nested ones are accepted as-is.
	}
	return nil
}

func typeMismatch(path, expected string, value gjson.Result) error {
	return fmt.Errorf("field '%s': expected %s, got %s", path, expected, jsonTypeName(value))
}

func jsonTypeName(r gjson.Result) string {
	switch {
	case r.Type == gjson.String:
		return "string"
	case r.Type == gjson.Number:
		return "number"
	case r.Type == gjson.True, r.Type == gjson.False:
		return "boolean"
	case r.Type == gjson.Null:
		return "null"
	case r.IsArray():
		return "array"
	case r.IsObject():
		return "object"
	default:
		return r.Type.String()
	}
}
