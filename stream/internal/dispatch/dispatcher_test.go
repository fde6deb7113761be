package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/stream/internal/enrichment"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
	"github.com/openframe-oss/openframe-stream/stream/internal/registry"
	"github.com/openframe-oss/openframe-stream/stream/internal/resolver"
	"github.com/openframe-oss/openframe-stream/stream/internal/sink"
	"github.com/openframe-oss/openframe-stream/stream/internal/transform"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingSink[E any] struct {
	mu     sync.Mutex
	pushed []E
	err    error
	block  bool
}

func (s *recordingSink[E]) Push(ctx context.Context, e E) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.pushed = append(s.pushed, e)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink[E]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushed)
}

type stubTransformer[E any] struct {
	entity E
	err    error
}

func (t stubTransformer[E]) Transform(*model.CdcEnvelope, model.EnrichedContext) (E, error) {
	return t.entity, t.err
}

type countingEnricher struct {
	calls   atomic.Int32
	machine string
}

func (e *countingEnricher) Enrich(_ context.Context, agentID string) model.EnrichedContext {
	e.calls.Add(1)
	return model.EnrichedContext{AgentID: agentID, MachineID: e.machine}
}

func meshEnvelope() *model.CdcEnvelope {
	return &model.CdcEnvelope{
		SourceDatabase: "meshcentral",
		Table:          "events",
		Operation:      model.OperationCreate,
		After:          model.Document{"eventType": "login", "agentId": "A1"},
	}
}

func newTestDispatcher(table map[model.MessageType][]Route, enricher Enricher, opts ...Option) *Dispatcher {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(resolver.Default(), NewRegistry(table), enricher, opts...)
}

func TestDispatch_ExampleScenario(t *testing.T) {
	builder := transform.NewBuilder(transform.WithClock(func() time.Time { return fixedNow }))
	logs := &recordingSink[*model.UnifiedLogRecord]{}
	analytics := &recordingSink[*model.AnalyticsMessage]{}

	reg := registry.NewStatic(map[string]string{"A1": "M100"})
	enricher := enrichment.NewClient(enrichment.NewMemoryCache(), reg, enrichment.WithLogger(logging.Discard()))

	d := newTestDispatcher(map[model.MessageType][]Route{
		model.MessageMeshCentralEvent: {
			NewRoute[*model.UnifiedLogRecord]("meshcentral-logstore", model.DestinationLogStore,
				transform.NewLogStoreTransformer(model.ToolMeshCentral, builder), logs),
			NewRoute[*model.AnalyticsMessage]("meshcentral-analytics", model.DestinationAnalytics,
				transform.NewAnalyticsTransformer(model.ToolMeshCentral, builder), analytics),
		},
	}, enricher)

	outcomes := d.Dispatch(context.Background(), meshEnvelope())
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, model.StatusDelivered, o.Status, o.Route)
	}
	assert.Equal(t, "meshcentral-logstore", outcomes[0].Route)
	assert.Equal(t, "meshcentral-analytics", outcomes[1].Route)

	require.Equal(t, 1, logs.count())
	rec := logs.pushed[0]
	assert.Equal(t, "M100", rec.DeviceID)
	assert.Equal(t, "login", rec.EventType)
	assert.Equal(t, model.ToolMeshCentral, rec.ToolType)

	require.Equal(t, 1, analytics.count())
	msg := analytics.pushed[0]
	assert.Equal(t, "meshcentral", msg.ToolName)
	assert.Equal(t, "M100", msg.MachineID)
	assert.Equal(t, "M100", msg.PartitionKey())
}

func TestDispatch_UnknownSource(t *testing.T) {
	logs := &recordingSink[*model.UnifiedLogRecord]{}
	enricher := &countingEnricher{}
	d := newTestDispatcher(map[model.MessageType][]Route{
		model.MessageMeshCentralEvent: {
			NewRoute[*model.UnifiedLogRecord]("logs", model.DestinationLogStore,
				stubTransformer[*model.UnifiedLogRecord]{entity: &model.UnifiedLogRecord{}}, logs),
		},
	}, enricher)

	env := meshEnvelope()
	env.SourceDatabase = "unknowndb"

	assert.Nil(t, d.Dispatch(context.Background(), env))
	assert.Zero(t, logs.count())
	assert.Zero(t, enricher.calls.Load(), "no enrichment for unresolved sources")
}

func TestDispatch_TypeWithoutRoutes(t *testing.T) {
	enricher := &countingEnricher{}
	d := newTestDispatcher(map[model.MessageType][]Route{}, enricher)

	env := meshEnvelope()
	env.SourceDatabase = "tactical_rmm"

	outcomes := d.Dispatch(context.Background(), env)
	assert.NotNil(t, outcomes)
	assert.Empty(t, outcomes)
	assert.Zero(t, enricher.calls.Load())
}

func TestDispatch_EnrichesOncePerMessage(t *testing.T) {
	enricher := &countingEnricher{machine: "M1"}
	var routes []Route
	sinks := make([]*recordingSink[string], 3)
	for i := range sinks {
		sinks[i] = &recordingSink[string]{}
		routes = append(routes, NewRoute[string]("r", model.DestinationSearch, stubTransformer[string]{entity: "x"}, sinks[i]))
	}
	d := newTestDispatcher(map[model.MessageType][]Route{model.MessageMeshCentralEvent: routes}, enricher)

	outcomes := d.Dispatch(context.Background(), meshEnvelope())
	assert.Len(t, outcomes, 3)
	assert.Equal(t, int32(1), enricher.calls.Load())
}

func TestDispatch_PartialFailureIsolation(t *testing.T) {
	for _, sequential := range []bool{false, true} {
		t.Run(map[bool]string{false: "concurrent", true: "sequential"}[sequential], func(t *testing.T) {
			good := &recordingSink[string]{}
			failing := &recordingSink[string]{err: sink.Fatal(model.DestinationAnalytics, errors.New("rejected"))}
			flaky := &recordingSink[string]{err: sink.Retryable(model.DestinationSearch, errors.New("503"))}
			afterBad := &recordingSink[string]{}

			d := newTestDispatcher(map[model.MessageType][]Route{
				model.MessageMeshCentralEvent: {
					NewRoute[string]("good", model.DestinationLogStore, stubTransformer[string]{entity: "a"}, good),
					NewRoute[string]("broken-transform", model.DestinationLogStore,
						stubTransformer[string]{err: &transform.TransformError{Tool: string(model.ToolMeshCentral), Field: "after", Reason: "missing"}}, &recordingSink[string]{}),
					NewRoute[string]("fatal", model.DestinationAnalytics, stubTransformer[string]{entity: "b"}, failing),
					NewRoute[string]("retryable", model.DestinationSearch, stubTransformer[string]{entity: "c"}, flaky),
					NewRoute[string]("after-bad", model.DestinationSearch, stubTransformer[string]{entity: "d"}, afterBad),
				},
			}, nil, WithSequential(sequential))

			outcomes := d.Dispatch(context.Background(), meshEnvelope())
			require.Len(t, outcomes, 5)

			assert.Equal(t, model.StatusDelivered, outcomes[0].Status)
			assert.Equal(t, model.StatusTransformFailed, outcomes[1].Status)
			assert.Equal(t, model.StatusSinkFailed, outcomes[2].Status)
			assert.False(t, outcomes[2].Retryable)
			assert.Equal(t, model.StatusSinkFailed, outcomes[3].Status)
			assert.True(t, outcomes[3].Retryable)
			assert.Equal(t, model.StatusDelivered, outcomes[4].Status)

			assert.Equal(t, 1, good.count())
			assert.Equal(t, 1, afterBad.count())
			assert.True(t, outcomes.Retryable())
			assert.True(t, outcomes.Fatal())
		})
	}
}

func TestDispatch_PushTimeoutIsRetryable(t *testing.T) {
	d := newTestDispatcher(map[model.MessageType][]Route{
		model.MessageMeshCentralEvent: {
			NewRoute[string]("slow", model.DestinationLogStore, stubTransformer[string]{entity: "a"}, &recordingSink[string]{block: true}),
			NewRoute[string]("fast", model.DestinationAnalytics, stubTransformer[string]{entity: "b"}, &recordingSink[string]{}),
		},
	}, nil, WithPushTimeout(20*time.Millisecond))

	start := time.Now()
	outcomes := d.Dispatch(context.Background(), meshEnvelope())
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, outcomes, 2)
	assert.Equal(t, model.StatusSinkFailed, outcomes[0].Status)
	assert.True(t, outcomes[0].Retryable)
	assert.ErrorIs(t, outcomes[0].Err, context.DeadlineExceeded)
	assert.Equal(t, model.StatusDelivered, outcomes[1].Status)
}

type ignoringSink struct{}

func (ignoringSink) Push(context.Context, string) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func TestDispatch_SinkIgnoringContextIsAbandoned(t *testing.T) {
	d := newTestDispatcher(map[model.MessageType][]Route{
		model.MessageMeshCentralEvent: {
			NewRoute[string]("stuck", model.DestinationLogStore, stubTransformer[string]{entity: "a"}, ignoringSink{}),
		},
	}, nil, WithPushTimeout(10*time.Millisecond))

	outcomes := d.Dispatch(context.Background(), meshEnvelope())
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Retryable)
	assert.Less(t, outcomes[0].Duration, 150*time.Millisecond)
}

type panickingSink struct{}

func (panickingSink) Push(context.Context, string) error {
	panic("boom")
}

func TestDispatch_PanicsStayInsideRoute(t *testing.T) {
	d := newTestDispatcher(map[model.MessageType][]Route{
		model.MessageMeshCentralEvent: {
			NewRoute[string]("panics", model.DestinationLogStore, stubTransformer[string]{entity: "a"}, panickingSink{}),
		},
	}, nil)

	outcomes := d.Dispatch(context.Background(), meshEnvelope())
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.StatusSinkFailed, outcomes[0].Status)
	assert.False(t, outcomes[0].Retryable)
}

func TestDispatch_DeleteSkipsToolRoutes(t *testing.T) {
	builder := transform.NewBuilder(transform.WithClock(func() time.Time { return fixedNow }))
	logs := &recordingSink[*model.UnifiedLogRecord]{}
	analytics := &recordingSink[*model.AnalyticsMessage]{}

	d := newTestDispatcher(map[model.MessageType][]Route{
		model.MessageMeshCentralEvent: {
			NewRoute[*model.UnifiedLogRecord]("meshcentral-logstore", model.DestinationLogStore,
				transform.NewLogStoreTransformer(model.ToolMeshCentral, builder), logs),
			NewRoute[*model.AnalyticsMessage]("meshcentral-analytics", model.DestinationAnalytics,
				transform.NewAnalyticsTransformer(model.ToolMeshCentral, builder), analytics),
		},
	}, nil)

	env := meshEnvelope()
	env.Operation = model.OperationDelete
	env.Before, env.After = env.After, nil

	outcomes := d.Dispatch(context.Background(), env)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, model.StatusSkipped, o.Status, o.Route)
		assert.False(t, o.Failed(), o.Route)
		assert.ErrorIs(t, o.Err, transform.ErrSkip)
	}
	assert.False(t, outcomes.Retryable())
	assert.False(t, outcomes.Fatal())
	assert.Zero(t, logs.count())
	assert.Zero(t, analytics.count())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(map[model.MessageType][]Route{
		model.MessageTacticalRMMEvent: {NewRoute[string]("a", model.DestinationAnalytics, stubTransformer[string]{}, &recordingSink[string]{})},
		model.MessageFleetMDMEvent:    {NewRoute[string]("b", model.DestinationLogStore, stubTransformer[string]{}, &recordingSink[string]{})},
		model.MessageMeshCentralEvent: nil,
	})

	assert.Equal(t, []model.MessageType{model.MessageFleetMDMEvent, model.MessageTacticalRMMEvent}, r.MessageTypes())
	require.Len(t, r.Routes(model.MessageFleetMDMEvent), 1)
	assert.Equal(t, "b", r.Routes(model.MessageFleetMDMEvent)[0].Name())
	assert.Equal(t, model.DestinationLogStore, r.Routes(model.MessageFleetMDMEvent)[0].Destination())
	assert.Empty(t, r.Routes(model.MessageMeshCentralEvent))

	var nilRegistry *Registry
	assert.Nil(t, nilRegistry.Routes(model.MessageFleetMDMEvent))
}
