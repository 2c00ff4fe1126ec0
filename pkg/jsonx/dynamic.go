// Package jsonx bridges typed schema values into the loosely typed JSON
// bodies provider wire formats expect.
package jsonx

import json "github.com/goccy/go-json"

// ToDynamicJSON round-trips val through its JSON encoding into a
// map[string]any. Providers use it to embed jsonschema values in request
// bodies assembled field by field.
func ToDynamicJSON(val any) (map[string]any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	result := make(map[string]any)
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
