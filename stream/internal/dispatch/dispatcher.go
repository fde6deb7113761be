package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/stream/internal/metrics"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
	"github.com/openframe-oss/openframe-stream/stream/internal/transform"
)

// DefaultPushTimeout bounds each sink push.
const DefaultPushTimeout = 10 * time.Second

// Resolver maps an envelope to its message type.
type Resolver interface {
	Resolve(env *model.CdcEnvelope) (model.MessageType, bool)
}

// Enricher resolves side-lookup context for an agent.
type Enricher interface {
	Enrich(ctx context.Context, agentID string) model.EnrichedContext
}

// Dispatcher fans one envelope out to every route of its message type.
type Dispatcher struct {
	resolver    Resolver
	registry    *Registry
	enricher    Enricher
	sequential  bool
	pushTimeout time.Duration
	logger      *logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSequential runs routes one after another instead of concurrently.
func WithSequential(sequential bool) Option {
	return func(d *Dispatcher) { d.sequential = sequential }
}

// WithPushTimeout bounds each sink push. Zero disables the bound.
func WithPushTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.pushTimeout = timeout }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher. A nil enricher yields contexts without a machine id.
func New(resolver Resolver, registry *Registry, enricher Enricher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:    resolver,
		registry:    registry,
		enricher:    enricher,
		pushTimeout: DefaultPushTimeout,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers env to every route registered for its message type and
// returns one outcome per route, in route order. Unresolved sources return nil.
func (d *Dispatcher) Dispatch(ctx context.Context, env *model.CdcEnvelope) model.Outcomes {
	if env == nil {
		return nil
	}

	mt, ok := d.resolver.Resolve(env)
	if !ok {
		metrics.UnresolvedSources.WithLabelValues(env.SourceDatabase).Inc()
		d.logger.DebugContext(ctx, "skipping message from unintegrated source",
			"database", env.SourceDatabase)
		return nil
	}

	routes := d.registry.Routes(mt)
	if len(routes) == 0 {
		d.logger.DebugContext(ctx, "no routes registered", logging.MessageType(string(mt)))
		return model.Outcomes{}
	}

	ectx := d.enrich(ctx, mt, env)

	outcomes := make(model.Outcomes, len(routes))
	if d.sequential || len(routes) == 1 {
		for i, r := range routes {
			outcomes[i] = r.deliver(ctx, env, ectx, d.pushTimeout)
		}
	} else {
		var wg sync.WaitGroup
		for i, r := range routes {
			wg.Add(1)
			go func(i int, r Route) {
				defer wg.Done()
				outcomes[i] = r.deliver(ctx, env, ectx, d.pushTimeout)
			}(i, r)
		}
		wg.Wait()
	}

	for _, o := range outcomes {
		d.record(ctx, mt, o)
	}
	return outcomes
}

func (d *Dispatcher) enrich(ctx context.Context, mt model.MessageType, env *model.CdcEnvelope) model.EnrichedContext {
	agentID := transform.AgentID(mt.Tool(), env)
	if d.enricher == nil {
		return model.EnrichedContext{AgentID: agentID}
	}
	return d.enricher.Enrich(ctx, agentID)
}

func (d *Dispatcher) record(ctx context.Context, mt model.MessageType, o model.DeliveryOutcome) {
	metrics.DeliveriesTotal.WithLabelValues(o.Route, string(o.Destination), string(o.Status)).Inc()

	attrs := []any{
		logging.MessageType(string(mt)),
		logging.Route(o.Route),
		logging.Destination(string(o.Destination)),
		logging.Duration(o.Duration),
	}
	switch o.Status {
	case model.StatusDelivered:
		d.logger.DebugContext(ctx, "route delivered", attrs...)
	case model.StatusSkipped:
		d.logger.DebugContext(ctx, "route skipped", append(attrs, "reason", o.Err.Error())...)
	case model.StatusTransformFailed:
		d.logger.WarnContext(ctx, "route transform failed", append(attrs, logging.Error(o.Err))...)
	case model.StatusSinkFailed:
		d.logger.ErrorContext(ctx, "route sink failed",
			append(attrs, logging.Error(o.Err), "retryable", o.Retryable)...)
	}
}
