// Package dlq records messages the processor gave up on.
package dlq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openframe-oss/openframe-stream/common/messaging"
)

// Reasons a message is dead-lettered.
const (
	ReasonDecode         = "decode"
	ReasonRetryExhausted = "retry_exhausted"
	ReasonSinkFatal      = "sink_fatal"
)

// FailedEvent is one dead-letter entry.
type FailedEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Subject   string          `json:"subject"`
	MessageID string          `json:"message_id,omitempty"`
	Reason    string          `json:"reason"`
	Error     string          `json:"error"`
	Attempts  int             `json:"attempts"`
	Data      json.RawMessage `json:"data,omitempty"`
	Raw       string          `json:"raw,omitempty"`
}

// NewFailedEvent builds the entry for msg. Payloads that are valid JSON are
// embedded as-is, anything else is kept as a string.
func NewFailedEvent(msg *messaging.Message, reason string, err error) FailedEvent {
	failed := FailedEvent{
		Timestamp: time.Now().UTC(),
		Reason:    reason,
	}
	if err != nil {
		failed.Error = err.Error()
	}
	if msg == nil {
		return failed
	}

	failed.Subject = msg.Subject
	failed.MessageID = msg.ID
	failed.Attempts = msg.Attempt
	if failed.Attempts == 0 {
		failed.Attempts = 1
	}
	if json.Valid(msg.Data) {
		failed.Data = json.RawMessage(msg.Data)
	} else {
		failed.Raw = string(msg.Data)
	}
	return failed
}

// Writer dead-letters messages.
type Writer interface {
	Write(ctx context.Context, msg *messaging.Message, reason string, err error) error
}

// Noop drops dead letters. Used when the DLQ is disabled.
type Noop struct{}

// Write does nothing.
func (Noop) Write(context.Context, *messaging.Message, string, error) error {
	return nil
}
