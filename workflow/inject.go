package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Variables are caller-supplied values applied to every task of one run.
type Variables map[string]any

const (
	openDelim  = "{{"
	closeDelim = "}}"

	// DependenciesKey is the context key and variable prefix under which
	// dependency outputs are exposed to a task.
	DependenciesKey = "dependencies"
)

// Inject replaces every {{key}} in template with vars[key] rendered as
// text. The template is scanned once, left to right; substituted text is
// never rescanned. Placeholders without a value are left untouched.
//
// Dotted keys such as {{dependencies.fetch}} are looked up verbatim first
// and then by descending into nested maps.
func Inject(template string, vars map[string]any) string {
	if len(vars) == 0 || !strings.Contains(template, openDelim) {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])

		key, width, ok := scanPlaceholder(rest[start:])
		if !ok {
			// not a placeholder; emit one brace and keep scanning
			b.WriteByte(rest[start])
			rest = rest[start+1:]
			continue
		}

		if v, found := lookup(vars, key); found {
			b.WriteString(render(v))
		} else {
			b.WriteString(rest[start : start+width])
		}
		rest = rest[start+width:]
	}
	return b.String()
}

// Placeholders returns the distinct keys referenced by template, in order
// of first appearance.
func Placeholders(template string) []string {
	var keys []string
	seen := make(map[string]struct{})

	rest := template
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			return keys
		}
		key, width, ok := scanPlaceholder(rest[start:])
		if !ok {
			rest = rest[start+1:]
			continue
		}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		rest = rest[start+width:]
	}
}

// MergeContext merges vars into a task's context. Task entries win over
// same-named variables; string task entries are themselves injected.
func MergeContext(taskCtx map[string]any, vars map[string]any) map[string]any {
	if len(taskCtx) == 0 && len(vars) == 0 {
		return nil
	}
	merged := make(map[string]any, len(taskCtx)+len(vars))
	for k, v := range vars {
		merged[k] = v
	}
	for k, v := range taskCtx {
		if s, ok := v.(string); ok {
			v = Inject(s, vars)
		}
		merged[k] = v
	}
	return merged
}

// scanPlaceholder parses "{{ key }}" at the start of s and returns the
// trimmed key and the number of bytes consumed.
func scanPlaceholder(s string) (string, int, bool) {
	end := strings.Index(s[len(openDelim):], closeDelim)
	if end < 0 {
		return "", 0, false
	}
	inner := s[len(openDelim) : len(openDelim)+end]
	key := strings.TrimSpace(inner)
	if key == "" || strings.ContainsAny(key, "{}\n") {
		return "", 0, false
	}
	return key, len(openDelim) + end + len(closeDelim), true
}

func lookup(vars map[string]any, key string) (any, bool) {
	if v, ok := vars[key]; ok {
		return v, true
	}
	head, tail, dotted := strings.Cut(key, ".")
	if !dotted {
		return nil, false
	}
	switch nested := vars[head].(type) {
	case map[string]any:
		return lookup(nested, tail)
	case Variables:
		return lookup(nested, tail)
	case map[string]string:
		v, ok := nested[tail]
		return v, ok
	}
	return nil, false
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case map[string]any, []any, map[string]string, []string, Variables:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	default:
		return fmt.Sprint(x)
	}
}
