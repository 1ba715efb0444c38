package tracking

import "strings"

// BuildTree converts flat dotted keys into a nested map.
// {"order.total": 100} becomes {"order": {"total": 100}}.
func BuildTree(flat map[string]any) map[string]any {
	result := make(map[string]any, len(flat))
	for key, value := range flat {
		setNested(result, key, value)
	}
	return result
}

func setNested(target map[string]any, path string, value any) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}

	parts := strings.Split(path, ".")
	current := target
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i == len(parts)-1 {
			current[part] = deepCopy(value)
			return
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			// A scalar at an intermediate segment is replaced; the more
			// specific write wins.
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
}
