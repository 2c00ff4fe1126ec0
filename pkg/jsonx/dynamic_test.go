package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDynamicJSON(t *testing.T) {
	type params struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	got, err := ToDynamicJSON(params{Name: "web_fetch", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "web_fetch", "count": float64(2)}, got)
}

func TestToDynamicJSONUnmarshalable(t *testing.T) {
	_, err := ToDynamicJSON(make(chan int))
	assert.Error(t, err)
}
