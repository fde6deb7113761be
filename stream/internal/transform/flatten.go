package transform

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Flattening limits.
const (
	MaxDepth       = 64
	MaxArrayItems  = 1000
	MaxValueLength = 10000
)

// Flatten converts a document into dot-path keys ("a.b", "list[0].c").
// Strings holding JSON objects or arrays are parsed and flattened in place.
// Nulls are omitted and long values are truncated.
func Flatten(doc map[string]any) map[string]string {
	out := make(map[string]string)
	if doc == nil {
		return out
	}
	flatten(doc, "", out, 0)
	return out
}

func flatten(v any, prefix string, out map[string]string, depth int) {
	if depth > MaxDepth {
		return
	}

	switch x := v.(type) {
	case nil:
		return
	case map[string]any:
		for k, child := range x {
			flatten(child, joinPath(prefix, k), out, depth+1)
		}
	case []any:
		n := len(x)
		if n > MaxArrayItems {
			n = MaxArrayItems
		}
		for i := 0; i < n; i++ {
			flatten(x[i], prefix+"["+strconv.Itoa(i)+"]", out, depth+1)
		}
	case string:
		if embedded, ok := parseEmbedded(x); ok {
			flatten(embedded, prefix, out, depth+1)
			return
		}
		put(out, prefix, x)
	default:
		put(out, prefix, scalar(x))
	}
}

func put(out map[string]string, key, value string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	out[key] = truncate(value)
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxValueLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxValueLength]) + "..."
}

func joinPath(prefix, field string) string {
	if strings.TrimSpace(prefix) == "" {
		return field
	}
	return prefix + "." + field
}

func parseEmbedded(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return parsed, true
}
