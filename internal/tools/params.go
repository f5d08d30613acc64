package tools

import (
	"encoding/json"
	"strconv"
)

// Model-supplied parameters arrive as map[string]any decoded from JSON, so
// numbers are float64 and anything may be missing or mistyped. These helpers
// normalize the common cases instead of erroring on them.

func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func intParam(params map[string]any, key string) *int {
	v, ok := params[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	case json.Number:
		if i64, err := n.Int64(); err == nil {
			i := int(i64)
			return &i
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return &i
		}
	}
	return nil
}
