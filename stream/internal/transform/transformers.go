package transform

import (
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// LogStoreTransformer produces unified_logs rows for one tool.
type LogStoreTransformer struct {
	tool    model.ToolType
	builder *Builder
}

// NewLogStoreTransformer creates a log store transformer for tool.
func NewLogStoreTransformer(tool model.ToolType, builder *Builder) *LogStoreTransformer {
	return &LogStoreTransformer{tool: tool, builder: builder}
}

// Transform builds the log record. The device id is the enriched machine id, empty when unknown.
func (t *LogStoreTransformer) Transform(env *model.CdcEnvelope, ectx model.EnrichedContext) (*model.UnifiedLogRecord, error) {
	ev, err := t.builder.Build(t.tool, env)
	if err != nil {
		return nil, err
	}
	return &model.UnifiedLogRecord{
		IngestDay:        ev.Timestamp.Format(model.IngestDayLayout),
		ToolType:         ev.Tool,
		EventType:        ev.SourceEventType,
		EventTimestamp:   ev.Timestamp,
		ToolEventID:      ev.ToolEventID,
		UnifiedEventType: string(ev.UnifiedType),
		UserID:           ev.UserID,
		DeviceID:         ectx.MachineID,
		Severity:         ev.UnifiedType.Severity(),
		Message:          ev.Message,
		Details:          ev.Details,
	}, nil
}

// AnalyticsTransformer produces analytics messages for one tool.
type AnalyticsTransformer struct {
	tool    model.ToolType
	builder *Builder
}

// NewAnalyticsTransformer creates an analytics transformer for tool.
func NewAnalyticsTransformer(tool model.ToolType, builder *Builder) *AnalyticsTransformer {
	return &AnalyticsTransformer{tool: tool, builder: builder}
}

// Transform builds the analytics message. A document without an organization
// takes the one cached for its machine.
func (t *AnalyticsTransformer) Transform(env *model.CdcEnvelope, ectx model.EnrichedContext) (*model.AnalyticsMessage, error) {
	ev, err := t.builder.Build(t.tool, env)
	if err != nil {
		return nil, err
	}
	orgID := ev.OrganizationID
	if orgID == "" {
		orgID = ectx.OrganizationID
	}
	return &model.AnalyticsMessage{
		EventType:        ev.SourceEventType,
		UnifiedEventType: string(ev.UnifiedType),
		Severity:         ev.UnifiedType.Severity(),
		Timestamp:        ev.Timestamp.UnixMilli(),
		ToolName:         ev.Tool.Name(),
		MachineID:        ectx.MachineID,
		OrganizationID:   orgID,
		ToolEventID:      ev.ToolEventID,
	}, nil
}
