package transform

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// UnknownEventType is used when a document carries no recognisable event type.
const UnknownEventType = "unknown"

// Fields are the tool-independent values pulled out of an after-document.
// Empty strings and a zero Timestamp mean the value was absent.
type Fields struct {
	AgentID         string
	SourceEventType string
	ToolEventID     string
	Message         string
	UserID          string
	OrganizationID  string
	Timestamp       time.Time
}

// Extractor reads a tool's document layout.
type Extractor interface {
	Tool() model.ToolType
	Extract(doc model.Document) Fields
}

var extractors = map[model.ToolType]Extractor{
	model.ToolMeshCentral: meshCentralExtractor{},
	model.ToolTactical:    tacticalExtractor{},
	model.ToolFleet:       fleetExtractor{},
}

// ExtractorFor returns the extractor for a tool, or nil if the tool is not integrated.
func ExtractorFor(tool model.ToolType) Extractor {
	return extractors[tool]
}

// AgentID returns the tool agent id carried by env's after-document.
func AgentID(tool model.ToolType, env *model.CdcEnvelope) string {
	ex := ExtractorFor(tool)
	if ex == nil || env == nil || env.After == nil {
		return ""
	}
	return ex.Extract(env.After).AgentID
}

// firstString returns the first non-blank scalar found under keys.
func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := scalar(doc[k]); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// scalar renders a JSON scalar as text. Objects and arrays render empty,
// except Mongo's {"$oid": ...} wrapper.
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any:
		if oid, ok := x["$oid"]; ok {
			return scalar(oid)
		}
	}
	return ""
}

// object returns v as an object, parsing it when it is a JSON-encoded string.
func object(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case model.Document:
		return x
	case string:
		s := strings.TrimSpace(x)
		if !strings.HasPrefix(s, "{") {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil
		}
		return obj
	}
	return nil
}

func joinType(kind, action string) string {
	switch {
	case kind != "" && action != "":
		return kind + "." + action
	case kind != "":
		return kind
	default:
		return action
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTime accepts RFC3339 and SQL-style strings, epoch numbers in seconds,
// milliseconds or microseconds, and Mongo {"$date": ...} wrappers.
func parseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epoch(f)
		}
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return epoch(f)
		}
	case float64:
		return epoch(x)
	case int64:
		return epoch(float64(x))
	case map[string]any:
		if d, ok := x["$date"]; ok {
			return parseTime(d)
		}
		if n, ok := x["$numberLong"]; ok {
			return parseTime(n)
		}
	}
	return time.Time{}, false
}

func epoch(f float64) (time.Time, bool) {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}, false
	}
	switch {
	case f >= 1e15:
		return time.UnixMicro(int64(f)).UTC(), true
	case f >= 1e11:
		return time.UnixMilli(int64(f)).UTC(), true
	default:
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}
}
