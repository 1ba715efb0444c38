package expression

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	interpOpen  = "{{"
	interpClose = "}}"
)

// HasPlaceholders reports whether the string contains a {{ }} reference.
func HasPlaceholders(s string) bool {
	open := strings.Index(s, interpOpen)
	return open >= 0 && strings.Index(s[open:], interpClose) > 0
}

// Interpolate replaces every {{ path }} placeholder with the stringified
// value resolved from the Env. Unresolvable references are an error so
// misconfigured templates fail loudly instead of sending "{{ amount }}"
// to a customer.
func Interpolate(ctx context.Context, env *Env, input string) (string, error) {
	if !HasPlaceholders(input) {
		return input, nil
	}
	if env == nil {
		return "", ErrNilEnv
	}

	var b strings.Builder
	rest := input
	for {
		open := strings.Index(rest, interpOpen)
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		closeIdx := strings.Index(rest[open:], interpClose)
		if closeIdx < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		closeIdx += open

		b.WriteString(rest[:open])
		ref := strings.TrimSpace(rest[open+len(interpOpen) : closeIdx])
		rest = rest[closeIdx+len(interpClose):]

		value, err := resolveRef(ctx, env, ref)
		if err != nil {
			return "", &InterpolationError{Input: input, VarRef: ref, Cause: err}
		}
		b.WriteString(stringify(value))
	}
}

// ResolveValue resolves a config value that may itself be a template. A string
// that is exactly one placeholder keeps the referenced value's type; any
// other string interpolates to a string; non-strings pass through.
func ResolveValue(ctx context.Context, env *Env, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}

	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, interpOpen) && strings.HasSuffix(trimmed, interpClose) {
		inner := strings.TrimSpace(trimmed[len(interpOpen) : len(trimmed)-len(interpClose)])
		if inner != "" && !strings.Contains(inner, interpClose) {
			resolved, err := resolveRef(ctx, env, inner)
			if err != nil {
				return nil, &InterpolationError{Input: s, VarRef: inner, Cause: err}
			}
			return resolved, nil
		}
	}
	return Interpolate(ctx, env, s)
}

// resolveRef first tries a plain path lookup, then falls back to full
// expression evaluation so templates can contain arithmetic like
// {{ order.amount * 0.18 }}.
func resolveRef(ctx context.Context, env *Env, ref string) (any, error) {
	if value, ok := env.Get(ref); ok {
		return value, nil
	}
	value, err := Eval(ctx, env, ref)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, fmt.Errorf("variable %q not found", ref)
	}
	return value, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
