// Package decoder turns raw Debezium change events into typed envelopes.
package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

var (
	// ErrMalformedEnvelope is returned when the envelope structure is missing or mistyped.
	ErrMalformedEnvelope = errors.New("malformed CDC envelope")

	// ErrUnsupportedOperation is returned for op codes outside c, u, d and r.
	ErrUnsupportedOperation = errors.New("unsupported CDC operation")
)

// DefaultTable is used when the source block names neither a table nor a collection.
const DefaultTable = "events"

// DecodeJSON parses a JSON-encoded Debezium message and decodes it.
func DecodeJSON(data []byte) (*model.CdcEnvelope, error) {
	raw, err := unmarshalObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return Decode(raw)
}

// Decode converts a generic key/value message into a CdcEnvelope.
// It has no side effects.
func Decode(raw map[string]any) (*model.CdcEnvelope, error) {
	payload, ok := raw["payload"].(map[string]any)
	if !ok {
		return nil, malformed("payload is %s", describe(raw["payload"]))
	}

	source, ok := payload["source"].(map[string]any)
	if !ok {
		return nil, malformed("payload.source is %s", describe(payload["source"]))
	}

	db, ok := source["db"].(string)
	if !ok || db == "" {
		return nil, malformed("payload.source.db is %s", describe(source["db"]))
	}

	code, _ := payload["op"].(string)
	op, ok := model.ParseOperation(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, code)
	}

	before, err := document(payload["before"])
	if err != nil {
		return nil, malformed("payload.before: %v", err)
	}
	after, err := document(payload["after"])
	if err != nil {
		return nil, malformed("payload.after: %v", err)
	}

	env := &model.CdcEnvelope{
		SourceDatabase: db,
		Table:          tableName(source),
		Operation:      op,
		Before:         before,
		After:          after,
	}
	env.Connector, _ = source["connector"].(string)

	if ms, ok := millis(payload["ts_ms"]); ok {
		env.SourceTimestamp = time.UnixMilli(ms).UTC()
	} else if ms, ok := millis(source["ts_ms"]); ok {
		env.SourceTimestamp = time.UnixMilli(ms).UTC()
	}

	return env, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedEnvelope, fmt.Sprintf(format, args...))
}

func tableName(source map[string]any) string {
	for _, key := range []string{"table", "collection"} {
		if s, ok := source[key].(string); ok && s != "" {
			return s
		}
	}
	return DefaultTable
}

// document accepts null, an object, or a string holding a JSON object.
// Mongo connectors publish documents as extended-JSON strings.
func document(v any) (model.Document, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return model.Document(d), nil
	case string:
		s := strings.TrimSpace(d)
		if s == "" || s == "null" {
			return nil, nil
		}
		obj, err := unmarshalObject([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("embedded document: %w", err)
		}
		return model.Document(obj), nil
	default:
		return nil, fmt.Errorf("expected object, got %s", describe(v))
	}
}

func unmarshalObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("expected JSON object, got null")
	}
	return obj, nil
}

func millis(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "missing"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("a %T", v)
	}
}
