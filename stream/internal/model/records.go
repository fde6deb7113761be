package model

import "time"

// Severity ranks unified events.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// UnifiedLogRecord is one row of the unified_logs table.
//
// Primary key: ((ingest_day, tool_type), event_type, event_timestamp, tool_event_id).
type UnifiedLogRecord struct {
	IngestDay        string            `json:"ingest_day" yaml:"ingest_day"`
	ToolType         ToolType          `json:"tool_type" yaml:"tool_type"`
	EventType        string            `json:"event_type" yaml:"event_type"`
	EventTimestamp   time.Time         `json:"event_timestamp" yaml:"event_timestamp"`
	ToolEventID      string            `json:"tool_event_id" yaml:"tool_event_id"`
	UnifiedEventType string            `json:"unified_event_type" yaml:"unified_event_type"`
	UserID           string            `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	DeviceID         string            `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	Severity         Severity          `json:"severity" yaml:"severity"`
	Message          string            `json:"message,omitempty" yaml:"message,omitempty"`
	Details          map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

// IngestDayLayout formats the ingest_day partition column.
const IngestDayLayout = "2006-01-02"

// NaturalKey returns the primary key columns joined into one string.
func (r *UnifiedLogRecord) NaturalKey() string {
	return r.IngestDay + "|" + string(r.ToolType) + "|" + r.EventType + "|" +
		r.EventTimestamp.UTC().Format(time.RFC3339Nano) + "|" + r.ToolEventID
}

// AnalyticsMessage is the payload published on event.<tool>.pinot.
type AnalyticsMessage struct {
	EventType        string   `json:"eventType" yaml:"eventType"`
	UnifiedEventType string   `json:"unifiedEventType" yaml:"unifiedEventType"`
	Severity         Severity `json:"severity" yaml:"severity"`
	Timestamp        int64    `json:"timestamp" yaml:"timestamp"`
	ToolName         string   `json:"toolName" yaml:"toolName"`
	MachineID        string   `json:"machineId,omitempty" yaml:"machineId,omitempty"`
	OrganizationID   string   `json:"organizationId,omitempty" yaml:"organizationId,omitempty"`
	ToolEventID      string   `json:"toolEventId" yaml:"toolEventId"`
}

// PartitionKey keeps one machine's events ordered; unbound events fall back to the tool.
func (m *AnalyticsMessage) PartitionKey() string {
	if m.MachineID != "" {
		return m.MachineID
	}
	return m.ToolName
}
