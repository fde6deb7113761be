package decoder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

const meshEnvelope = `{
  "schema": {"type": "struct"},
  "payload": {
    "before": null,
    "after": "{\"_id\":{\"$oid\":\"65f1c0ffee\"},\"etype\":\"user\",\"action\":\"login\",\"nodeid\":\"node//abc\",\"msg\":\"Account login\"}",
    "source": {"connector": "mongodb", "db": "meshcentral", "collection": "events", "ts_ms": 1700000000000},
    "op": "c",
    "ts_ms": 1700000000500
  }
}`

const tacticalEnvelope = `{
  "payload": {
    "before": null,
    "after": {"id": 42, "agentid": "agent-7", "object_type": "agent", "action": "created", "entry_time": "2025-01-02T03:04:05Z"},
    "source": {"connector": "postgresql", "db": "tactical_rmm", "table": "logs_auditlog", "ts_ms": 1700000001000},
    "op": "r"
  }
}`

func TestDecodeJSON_MongoStringDocument(t *testing.T) {
	env, err := DecodeJSON([]byte(meshEnvelope))
	require.NoError(t, err)

	assert.Equal(t, "meshcentral", env.SourceDatabase)
	assert.Equal(t, "mongodb", env.Connector)
	assert.Equal(t, "events", env.Table)
	assert.Equal(t, model.OperationCreate, env.Operation)
	assert.Nil(t, env.Before)
	require.NotNil(t, env.After)
	assert.Equal(t, "login", env.After["action"])
	assert.Equal(t, map[string]any{"$oid": "65f1c0ffee"}, env.After["_id"])
	assert.Equal(t, time.UnixMilli(1700000000500).UTC(), env.SourceTimestamp)
}

func TestDecodeJSON_ObjectDocument(t *testing.T) {
	env, err := DecodeJSON([]byte(tacticalEnvelope))
	require.NoError(t, err)

	assert.Equal(t, "tactical_rmm", env.SourceDatabase)
	assert.Equal(t, "logs_auditlog", env.Table)
	assert.Equal(t, model.OperationSnapshot, env.Operation)
	assert.Equal(t, json.Number("42"), env.After["id"], "numbers keep their exact form")
	assert.Equal(t, time.UnixMilli(1700000001000).UTC(), env.SourceTimestamp, "falls back to source.ts_ms")
}

func TestDecode_DefaultsTable(t *testing.T) {
	env, err := Decode(map[string]any{
		"payload": map[string]any{
			"op":     "u",
			"source": map[string]any{"db": "fleet"},
			"after":  map[string]any{"id": json.Number("1")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, env.Table)
	assert.True(t, env.SourceTimestamp.IsZero())
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing payload", map[string]any{}},
		{"payload not object", map[string]any{"payload": "x"}},
		{"missing source", map[string]any{"payload": map[string]any{"op": "c"}}},
		{"source not object", map[string]any{"payload": map[string]any{"op": "c", "source": []any{}}}},
		{"missing db", map[string]any{"payload": map[string]any{"op": "c", "source": map[string]any{}}}},
		{"db not string", map[string]any{"payload": map[string]any{"op": "c", "source": map[string]any{"db": json.Number("7")}}}},
		{"empty db", map[string]any{"payload": map[string]any{"op": "c", "source": map[string]any{"db": ""}}}},
		{"after is number", map[string]any{"payload": map[string]any{"op": "c", "source": map[string]any{"db": "fleet"}, "after": json.Number("1")}}},
		{"after is broken json", map[string]any{"payload": map[string]any{"op": "c", "source": map[string]any{"db": "fleet"}, "after": "{nope"}}},
		{"before is array string", map[string]any{"payload": map[string]any{"op": "u", "source": map[string]any{"db": "fleet"}, "before": "[1,2]"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode(tt.raw)
			assert.Nil(t, env)
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestDecode_UnsupportedOperation(t *testing.T) {
	for _, op := range []any{"t", "x", nil, json.Number("1")} {
		raw := map[string]any{"payload": map[string]any{"source": map[string]any{"db": "fleet"}, "op": op}}
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrUnsupportedOperation, "op=%v", op)
		assert.NotErrorIs(t, err, ErrMalformedEnvelope)
	}
}

func TestDecodeJSON_InvalidJSON(t *testing.T) {
	for _, in := range []string{"", "not json", "null", "[]"} {
		_, err := DecodeJSON([]byte(in))
		assert.ErrorIs(t, err, ErrMalformedEnvelope, "input=%q", in)
	}
}

func TestDecode_NullStringDocument(t *testing.T) {
	env, err := Decode(map[string]any{
		"payload": map[string]any{"op": "d", "source": map[string]any{"db": "meshcentral"}, "before": "null", "after": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OperationDelete, env.Operation)
	assert.Nil(t, env.Before)
	assert.Nil(t, env.After)
}
