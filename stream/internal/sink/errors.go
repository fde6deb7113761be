// Package sink delivers transformed entities to downstream stores.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Kind classifies a delivery failure.
type Kind int

const (
	// KindRetryable failures may succeed on redelivery.
	KindRetryable Kind = iota + 1
	// KindFatal failures will fail again however often they are retried.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// SinkError is returned by every sink Push.
type SinkError struct {
	Kind        Kind
	Destination model.Destination
	Err         error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink %s: %v", e.Destination, e.Kind, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a retryable failure of dest.
func Retryable(dest model.Destination, err error) error {
	return &SinkError{Kind: KindRetryable, Destination: dest, Err: err}
}

// Fatal wraps err as a non-retryable failure of dest.
func Fatal(dest model.Destination, err error) error {
	return &SinkError{Kind: KindFatal, Destination: dest, Err: err}
}

// IsRetryable reports whether err is worth redelivering. Deadlines are always
// retryable; unclassified errors are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *SinkError
	if errors.As(err, &se) {
		return se.Kind == KindRetryable
	}
	return !errors.Is(err, context.Canceled)
}
