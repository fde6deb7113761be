package transform

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatten(t *testing.T) {
	doc := map[string]any{
		"id":      json.Number("1"),
		"enabled": true,
		"ratio":   0.5,
		"user":    map[string]any{"name": "alice", "roles": []any{"admin", "ops"}},
		"gone":    nil,
		"details": `{"message":"hi","tags":["a","b"]}`,
		"raw":     "{not json",
	}

	got := Flatten(doc)

	assert.Equal(t, map[string]string{
		"id":              "1",
		"enabled":         "true",
		"ratio":           "0.5",
		"user.name":       "alice",
		"user.roles[0]":   "admin",
		"user.roles[1]":   "ops",
		"details.message": "hi",
		"details.tags[0]": "a",
		"details.tags[1]": "b",
		"raw":             "{not json",
	}, got)
}

func TestFlatten_ArrayLimit(t *testing.T) {
	items := make([]any, MaxArrayItems+50)
	for i := range items {
		items[i] = "x"
	}

	got := Flatten(map[string]any{"list": items})
	assert.Len(t, got, MaxArrayItems)
	assert.Contains(t, got, "list[999]")
	assert.NotContains(t, got, "list[1000]")
}

func TestFlatten_ValueTruncation(t *testing.T) {
	long := strings.Repeat("é", MaxValueLength+10)

	got := Flatten(map[string]any{"v": long, "short": "ok"})
	assert.Equal(t, strings.Repeat("é", MaxValueLength)+"...", got["v"])
	assert.Equal(t, "ok", got["short"])
}

func TestFlatten_DepthLimit(t *testing.T) {
	nest := func(levels int) map[string]any {
		var v any = "leaf"
		for i := 0; i < levels; i++ {
			v = map[string]any{"a": v}
		}
		return v.(map[string]any)
	}

	assert.Len(t, Flatten(nest(10)), 1)
	assert.Empty(t, Flatten(nest(MaxDepth+5)))
}

func TestFlatten_Nil(t *testing.T) {
	assert.Empty(t, Flatten(nil))
}

func TestFlatten_TopLevelEmbeddedArray(t *testing.T) {
	got := Flatten(map[string]any{"payload": "[1, {\"k\": null}, 3]"})
	assert.Equal(t, map[string]string{"payload[0]": "1", "payload[2]": "3"}, got)
}
