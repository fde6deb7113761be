// Package dispatch routes decoded CDC envelopes to the (transformer, sink) pairs
// registered for their message type.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openframe-oss/openframe-stream/stream/internal/metrics"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
	"github.com/openframe-oss/openframe-stream/stream/internal/sink"
	"github.com/openframe-oss/openframe-stream/stream/internal/transform"
)

// Transformer turns an envelope into a destination entity.
type Transformer[E any] interface {
	Transform(env *model.CdcEnvelope, ectx model.EnrichedContext) (E, error)
}

// Sink delivers destination entities.
type Sink[E any] interface {
	Push(ctx context.Context, entity E) error
}

// Route is a transformer and sink bound by entity type. Routes are only built
// through NewRoute, so a transformer can never feed a sink of another type.
type Route interface {
	Name() string
	Destination() model.Destination
	deliver(ctx context.Context, env *model.CdcEnvelope, ectx model.EnrichedContext, timeout time.Duration) model.DeliveryOutcome
}

type route[E any] struct {
	name        string
	destination model.Destination
	transformer Transformer[E]
	sink        Sink[E]
}

// NewRoute binds a transformer to a sink of the same entity type.
func NewRoute[E any](name string, destination model.Destination, t Transformer[E], s Sink[E]) Route {
	return &route[E]{name: name, destination: destination, transformer: t, sink: s}
}

func (r *route[E]) Name() string {
	return r.name
}

func (r *route[E]) Destination() model.Destination {
	return r.destination
}

func (r *route[E]) deliver(ctx context.Context, env *model.CdcEnvelope, ectx model.EnrichedContext, timeout time.Duration) (out model.DeliveryOutcome) {
	start := time.Now()
	out = model.DeliveryOutcome{Route: r.name, Destination: r.destination}
	defer func() {
		out.Duration = time.Since(start)
	}()

	entity, err := r.transform(env, ectx)
	if errors.Is(err, transform.ErrSkip) {
		out.Status = model.StatusSkipped
		out.Err = err
		return out
	}
	if err != nil {
		out.Status = model.StatusTransformFailed
		out.Err = err
		return out
	}

	pushStart := time.Now()
	err = r.push(ctx, entity, timeout)
	metrics.SinkDuration.WithLabelValues(string(r.destination)).Observe(time.Since(pushStart).Seconds())
	if err != nil {
		out.Status = model.StatusSinkFailed
		out.Err = err
		out.Retryable = sink.IsRetryable(err)
		return out
	}

	out.Status = model.StatusDelivered
	return out
}

func (r *route[E]) transform(env *model.CdcEnvelope, ectx model.EnrichedContext) (entity E, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("transformer %s panicked: %v", r.name, p)
		}
	}()
	return r.transformer.Transform(env, ectx)
}

// push runs the sink under timeout. A sink that ignores its context is
// abandoned once the deadline passes.
func (r *route[E]) push(ctx context.Context, entity E, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- sink.Fatal(r.destination, fmt.Errorf("sink %s panicked: %v", r.name, p))
			}
		}()
		done <- r.sink.Push(ctx, entity)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("push to %s: %w", r.destination, ctx.Err())
	}
}
