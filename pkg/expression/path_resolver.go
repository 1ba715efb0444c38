package expression

import (
	"fmt"
	"strconv"
	"strings"
)

// ResolvePath walks a dotted path through nested maps and slices.
// Supported segments: "a.b.c" for map keys and "items[0]" for slice indices.
// A flat key containing dots (e.g. a variable literally named "order.total")
// wins over path traversal when present.
func ResolvePath(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	if v, ok := data[path]; ok {
		return v, true
	}

	segments, err := splitPath(path)
	if err != nil {
		return nil, false
	}

	var current any = data
	for _, seg := range segments {
		switch {
		case seg.index >= 0:
			slice, ok := current.([]any)
			if !ok || seg.index >= len(slice) {
				return nil, false
			}
			current = slice[seg.index]
		default:
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = m[seg.key]
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

// SetPath writes a value at a dotted path, creating intermediate maps.
// Slice segments are read-only; attempting to set through one is an error.
func SetPath(data map[string]any, path string, value any) error {
	if path == "" {
		return ErrEmptyPath
	}

	segments, err := splitPath(path)
	if err != nil {
		return err
	}

	current := data
	for i, seg := range segments {
		if seg.index >= 0 {
			return fmt.Errorf("cannot set through index segment in path %q", path)
		}
		if i == len(segments)-1 {
			current[seg.key] = value
			return nil
		}
		next, ok := current[seg.key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[seg.key] = next
		}
		current = next
	}
	return nil
}

type pathSegment struct {
	key   string
	index int // -1 for map keys
}

func splitPath(path string) ([]pathSegment, error) {
	var segments []pathSegment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("empty segment in path %q", path)
		}
		for {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				if part != "" {
					segments = append(segments, pathSegment{key: part, index: -1})
				}
				break
			}
			if open > 0 {
				segments = append(segments, pathSegment{key: part[:open], index: -1})
			}
			closeIdx := strings.IndexByte(part[open:], ']')
			if closeIdx < 0 {
				return nil, fmt.Errorf("unclosed index in path %q", path)
			}
			closeIdx += open
			idx, err := strconv.Atoi(part[open+1 : closeIdx])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid index in path %q", path)
			}
			segments = append(segments, pathSegment{index: idx})
			part = part[closeIdx+1:]
		}
	}
	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}
	return segments, nil
}
