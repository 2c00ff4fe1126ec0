package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandlang/strand/ast"
	"github.com/strandlang/strand/interp"
)

func strField(name string) ast.StructField {
	return ast.StructField{Name: name, Type: &ast.TypeRef{Kind: ast.TypeString}}
}

func numField(name string) ast.StructField {
	return ast.StructField{Name: name, Type: &ast.TypeRef{Kind: ast.TypeNumber}}
}

func TestExtractJSONBareObject(t *testing.T) {
	doc, ok := extractJSON(`  {"a": 1}  `)
	require.True(t, ok)
	assert.Equal(t, int64(1), doc.Get("a").Int())
}

func TestExtractJSONFenced(t *testing.T) {
	doc, ok := extractJSON("```json\n{\"a\": 1}\n```")
	require.True(t, ok)
	assert.Equal(t, int64(1), doc.Get("a").Int())

	doc, ok = extractJSON("```\n{\"b\": 2}\n```")
	require.True(t, ok)
	assert.Equal(t, int64(2), doc.Get("b").Int())
}

func TestExtractJSONEmbeddedInProse(t *testing.T) {
	doc, ok := extractJSON(`Sure! Here is the result: {"a": 1} Hope that helps.`)
	require.True(t, ok)
	assert.Equal(t, int64(1), doc.Get("a").Int())
}

func TestExtractJSONNone(t *testing.T) {
	_, ok := extractJSON("no structure here at all")
	assert.False(t, ok)

	_, ok = extractJSON("broken { not json }")
	assert.False(t, ok)
}

func TestDecodeStructuredValid(t *testing.T) {
	fields := []ast.StructField{strField("name"), numField("age")}

	got, err := decodeStructured(`{"name": "Ada", "age": 36}`, fields)
	require.NoError(t, err)

	obj := got.(*interp.Object)
	name, _ := obj.Get("name")
	age, _ := obj.Get("age")
	assert.Equal(t, interp.String("Ada"), name)
	assert.Equal(t, interp.Number(36), age)
}

func TestDecodeStructuredMissingField(t *testing.T) {
	fields := []ast.StructField{strField("name"), numField("age")}

	_, err := decodeStructured(`{"name": "Ada"}`, fields)
	require.Error(t, err)
	assert.EqualError(t, err, "missing required field: 'age'")
}

func TestDecodeStructuredTypeMismatch(t *testing.T) {
	fields := []ast.StructField{numField("age")}

	_, err := decodeStructured(`{"age": "thirty"}`, fields)
	require.Error(t, err)
	assert.EqualError(t, err, "field 'age': expected number, got string")
}

func TestDecodeStructuredNotAnObject(t *testing.T) {
	_, err := decodeStructured(`[1, 2, 3]`, nil)
	require.Error(t, err)
	assert.EqualError(t, err, "expected a JSON object, got array")
}

func TestDecodeStructuredArrayElementPath(t *testing.T) {
	fields := []ast.StructField{{
		Name: "scores",
		Type: &ast.TypeRef{Kind: ast.TypeArrayOf, Elem: &ast.TypeRef{Kind: ast.TypeNumber}},
	}}

	_, err := decodeStructured(`{"scores": [1, "two", 3]}`, fields)
	require.Error(t, err)
	assert.EqualError(t, err, "field 'scores[1]': expected number, got string")
}

func TestDecodeStructuredNestedPath(t *testing.T) {
	fields := []ast.StructField{{
		Name: "user",
		Type: &ast.TypeRef{Kind: ast.TypeInline, Fields: []ast.StructField{strField("email")}},
	}}

	_, err := decodeStructured(`{"user": {}}`, fields)
	require.Error(t, err)
	assert.EqualError(t, err, "missing required field: 'user.email'")

	_, err = decodeStructured(`{"user": {"email": 7}}`, fields)
	require.Error(t, err)
	assert.EqualError(t, err, "field 'user.email': expected string, got number")
}

func TestDecodeStructuredUntypedContainers(t *testing.T) {
	fields := []ast.StructField{
		{Name: "tags", Type: &ast.TypeRef{Kind: ast.TypeArray}},
		{Name: "meta", Type: &ast.TypeRef{Kind: ast.TypeObject}},
		{Name: "extra", Type: &ast.TypeRef{Kind: ast.TypeAny}},
	}

	_, err := decodeStructured(`{"tags": ["a"], "meta": {"k": 1}, "extra": null}`, fields)
	require.NoError(t, err)

	_, err = decodeStructured(`{"tags": "a", "meta": {}, "extra": null}`, fields)
	require.Error(t, err)
	assert.EqualError(t, err, "field 'tags': expected array, got string")
}

func TestOutputInstructionsCustomOverride(t *testing.T) {
	agent := testAgent()
	agent.OutputInstructions = "Answer as terse JSON."
	assert.Equal(t, "Answer as terse JSON.", outputInstructions(agent))
}

func TestOutputInstructionsRendersSchema(t *testing.T) {
	agent := testAgent()
	agent.OutputFields = []ast.StructField{strField("summary")}

	got := outputInstructions(agent)
	assert.Contains(t, got, "Respond with ONLY a JSON object matching this schema")
	assert.Contains(t, got, `"summary"`)
	assert.Contains(t, got, `"required"`)
}

func TestRetryPromptCustomOverride(t *testing.T) {
	agent := testAgent()
	agent.RetryPrompt = "Try again, JSON only."
	assert.Equal(t, "Try again, JSON only.", retryPrompt(agent, assert.AnError))
}
