package mnode

import (
	"fmt"
	"math"
)

// Shared raw-map accessors. Numbers arriving through JSON decode as float64,
// YAML as int; toFloat and optionalInt accept both.

func requireString(cfg map[string]any, key string) (string, error) {
	raw, ok := cfg[key]
	if !ok {
		return "", &InvalidConfigError{Key: key, Reason: "required"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &InvalidConfigError{Key: key, Reason: fmt.Sprintf("must be a string, got %T", raw)}
	}
	if s == "" {
		return "", &InvalidConfigError{Key: key, Reason: "must not be empty"}
	}
	return s, nil
}

func optionalString(cfg map[string]any, key string) (string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", &InvalidConfigError{Key: key, Reason: fmt.Sprintf("must be a string, got %T", raw)}
	}
	return s, nil
}

func optionalInt(cfg map[string]any, key string) (int64, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return 0, nil
	}
	f, err := toFloat(raw)
	if err != nil || f != math.Trunc(f) {
		return 0, &InvalidConfigError{Key: key, Reason: fmt.Sprintf("must be an integer, got %v", raw)}
	}
	return int64(f), nil
}

func optionalStringMap(cfg map[string]any, key string) (map[string]string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &InvalidConfigError{Key: key, Reason: fmt.Sprintf("must be a map, got %T", raw)}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return nil, &InvalidConfigError{Key: key, Reason: fmt.Sprintf("entry %q must be a string, got %T", k, v)}
		}
		out[k] = s
	}
	return out, nil
}

func optionalAnyMap(cfg map[string]any, key string) (map[string]any, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &InvalidConfigError{Key: key, Reason: fmt.Sprintf("must be a map, got %T", raw)}
	}
	return m, nil
}

func requireStringSlice(cfg map[string]any, key string) ([]string, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, &InvalidConfigError{Key: key, Reason: "required"}
	}
	var out []string
	switch v := raw.(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &InvalidConfigError{Key: key, Reason: fmt.Sprintf("entry %d must be a string, got %T", i, item)}
			}
			out = append(out, s)
		}
	default:
		return nil, &InvalidConfigError{Key: key, Reason: fmt.Sprintf("must be a string list, got %T", raw)}
	}
	if len(out) == 0 {
		return nil, &InvalidConfigError{Key: key, Reason: "must not be empty"}
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
