package cipher

import (
	"fmt"
	"strconv"
	"strings"
)

// intParam reads an integer parameter. JSON-decoded numbers arrive as
// float64 and CLI parameters as strings; both are accepted.
func intParam(params map[string]any, name string) (int, bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != float64(int(v)) {
			return 0, true, fmt.Errorf("parameter %q must be an integer, got %v", name, v)
		}
		return int(v), true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, true, fmt.Errorf("parameter %q must be an integer: %w", name, err)
		}
		return n, true, nil
	default:
		return 0, true, fmt.Errorf("parameter %q has unsupported type %T", name, raw)
	}
}

func stringParam(params map[string]any, name string) (string, bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("parameter %q must be a string, got %T", name, raw)
	}
	return s, true, nil
}

func requireString(params map[string]any, name string) (string, error) {
	s, ok, err := stringParam(params, name)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", fmt.Errorf("missing required parameter %q", name)
	}
	return s, nil
}

// ParseParams turns "k=v" pairs into an operation parameter map.
func ParseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[k] = v
	}
	return params, nil
}
