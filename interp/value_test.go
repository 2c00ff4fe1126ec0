package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSONScalars(t *testing.T) {
	for _, tc := range []struct {
		value Value
		want  string
	}{
		{Null{}, "null"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Number(42), "42"},
		{Number(2.5), "2.5"},
		{String("hi"), `"hi"`},
		{String(`quote "me"`), `"quote \"me\""`},
	} {
		got, err := ToJSON(tc.value)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(got))
	}
}

func TestToJSONObjectPreservesInsertionOrder(t *testing.T) {
	obj := NewObject()
	obj.Set("zebra", Number(1))
	obj.Set("apple", Number(2))
	obj.Set("mango", Number(3))

	got, err := ToJSON(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":1,"apple":2,"mango":3}`, string(got))
}

func TestToJSONNested(t *testing.T) {
	inner := NewObject()
	inner.Set("name", String("Ada"))

	obj := NewObject()
	obj.Set("user", inner)
	obj.Set("tags", &Array{Elems: []Value{String("a"), Number(1), Null{}}})

	got, err := ToJSON(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"name":"Ada"},"tags":["a",1,null]}`, string(got))
}

func TestToJSONKeysWithPathCharacters(t *testing.T) {
	obj := NewObject()
	obj.Set("a.b", Number(1))
	obj.Set("c*d", Number(2))

	got, err := ToJSON(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a.b":1,"c*d":2}`, string(got))
}

func TestToJSONEnumValue(t *testing.T) {
	bare := &EnumValue{Enum: "Shape", Variant: "Dot"}
	got, err := ToJSON(bare)
	require.NoError(t, err)
	assert.Equal(t, `"Dot"`, string(got))

	payload := &EnumValue{Enum: "Shape", Variant: "Circle", Payload: []Value{Number(3)}}
	got, err = ToJSON(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"variant":"Circle","payload":[3]}`, string(got))
}

func TestFromJSONRoundTrip(t *testing.T) {
	src := `{"b": 1, "a": {"nested": [true, "x", 2.5]}, "n": null}`
	v, err := FromJSON([]byte(src))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a", "n"}, obj.Keys())

	out, err := ToJSON(v)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))
}

func TestFromJSONInvalid(t *testing.T) {
	_, err := FromJSON([]byte("{broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid json")
}
