package transform

import (
	"fmt"
	"time"

	"github.com/openframe-oss/openframe-stream/stream/internal/eventtype"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Event is the tool-independent view of one change, shared by every
// destination transformer of a tool.
type Event struct {
	Tool            model.ToolType
	Table           string
	AgentID         string
	SourceEventType string
	UnifiedType     eventtype.Type
	ToolEventID     string
	Message         string
	UserID          string
	OrganizationID  string
	Timestamp       time.Time
	Details         map[string]string
}

// Builder turns envelopes into Events. Its only impurity is the clock used
// when neither the document nor the envelope carries a timestamp.
type Builder struct {
	now func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build extracts an Event for tool from env.
func (b *Builder) Build(tool model.ToolType, env *model.CdcEnvelope) (*Event, error) {
	ex := ExtractorFor(tool)
	if ex == nil {
		return nil, &TransformError{Tool: string(tool), Field: "tool", Reason: "no extractor registered"}
	}
	if env != nil && env.After == nil && env.Operation == model.OperationDelete {
		return nil, fmt.Errorf("%s %s delete: %w", tool.Name(), env.Table, ErrSkip)
	}
	if env == nil || env.After == nil {
		return nil, &TransformError{Tool: tool.Name(), Field: "after", Reason: "document is absent"}
	}

	f := ex.Extract(env.After)

	sourceType := f.SourceEventType
	if sourceType == "" {
		sourceType = UnknownEventType
	}

	ts := f.Timestamp
	if ts.IsZero() {
		ts = env.SourceTimestamp
	}
	if ts.IsZero() {
		ts = b.now()
	}
	// The log store keeps millisecond precision; truncating keeps the primary key stable.
	ts = ts.UTC().Truncate(time.Millisecond)

	return &Event{
		Tool:            tool,
		Table:           env.Table,
		AgentID:         f.AgentID,
		SourceEventType: sourceType,
		UnifiedType:     eventtype.Map(tool, sourceType),
		ToolEventID:     ToolEventID(tool, env.Table, f.ToolEventID, env.After),
		Message:         f.Message,
		UserID:          f.UserID,
		OrganizationID:  f.OrganizationID,
		Timestamp:       ts,
		Details:         Flatten(env.After),
	}, nil
}
