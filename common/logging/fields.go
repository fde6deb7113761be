package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging across the pipeline.
const (
	FieldService     = "service"
	FieldMessageID   = "message_id"
	FieldSubject     = "subject"
	FieldTool        = "tool"
	FieldMessageType = "message_type"
	FieldRoute       = "route"
	FieldDestination = "destination"
	FieldAgentID     = "agent_id"
	FieldMachineID   = "machine_id"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldAttempt     = "attempt"
	FieldReason      = "reason"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Subject returns a slog attribute for a broker subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Tool returns a slog attribute for the integrated tool.
func Tool(tool string) slog.Attr {
	return slog.String(FieldTool, tool)
}

// MessageType returns a slog attribute for the resolved message type.
func MessageType(mt string) slog.Attr {
	return slog.String(FieldMessageType, mt)
}

// Route returns a slog attribute for a dispatch route name.
func Route(name string) slog.Attr {
	return slog.String(FieldRoute, name)
}

// Destination returns a slog attribute for a sink destination.
func Destination(name string) slog.Attr {
	return slog.String(FieldDestination, name)
}

// AgentID returns a slog attribute for a tool agent ID.
func AgentID(id string) slog.Attr {
	return slog.String(FieldAgentID, id)
}

// MachineID returns a slog attribute for a platform machine ID.
func MachineID(id string) slog.Attr {
	return slog.String(FieldMachineID, id)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Attempt returns a slog attribute for a delivery attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(FieldAttempt, n)
}

// Reason returns a slog attribute for a drop or dead-letter reason.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}
