// Package messaging provides broker-neutral message types, subjects and
// health checks for the OpenFrame event bus.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Message represents a message received from or sent to a message broker.
type Message struct {
	// ID identifies the message within its stream (stream sequence for JetStream).
	ID string

	// Subject is the topic/channel the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Timestamp is when the message was published.
	Timestamp time.Time

	// Attempt is the 1-based delivery attempt. Zero when the broker does not track redeliveries.
	Attempt int

	// MaxAttempts is the consumer's delivery limit. Zero or negative means unlimited.
	MaxAttempts int
}

// LastAttempt reports whether the broker will not redeliver this message again.
func (m *Message) LastAttempt() bool {
	return m.MaxAttempts > 0 && m.Attempt >= m.MaxAttempts
}

// MessageHandler processes a received message.
// A nil error acknowledges the message. A *NakError requests redelivery after its delay;
// any other error requests redelivery after the implementation's default delay.
type MessageHandler func(ctx context.Context, msg *Message) error

// NakError asks the consumer to negatively acknowledge a message.
type NakError struct {
	Delay time.Duration
	Err   error
}

func (e *NakError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nak (redeliver in %s)", e.Delay)
	}
	return fmt.Sprintf("nak (redeliver in %s): %v", e.Delay, e.Err)
}

func (e *NakError) Unwrap() error {
	return e.Err
}

// Nak wraps err so the consumer redelivers the message after delay.
func Nak(delay time.Duration, err error) error {
	return &NakError{Delay: delay, Err: err}
}

// NakDelay extracts the redelivery delay from err, if it carries one.
func NakDelay(err error) (time.Duration, bool) {
	var nak *NakError
	if errors.As(err, &nak) {
		return nak.Delay, true
	}
	return 0, false
}

// PublishOption configures message publishing behavior.
type PublishOption func(*publishOptions)

type publishOptions struct {
	headers map[string]string
}

// WithHeader adds a header to the published message.
func WithHeader(key, value string) PublishOption {
	return func(o *publishOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// NewMessage builds an outbound Message for subject, applying opts.
func NewMessage(subject string, data []byte, opts ...PublishOption) *Message {
	o := &publishOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &Message{
		Subject:  subject,
		Data:     data,
		Metadata: o.headers,
	}
}
