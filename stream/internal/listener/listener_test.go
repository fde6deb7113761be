package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/common/messaging"
	"github.com/openframe-oss/openframe-stream/common/messaging/nats"
	"github.com/openframe-oss/openframe-stream/stream/internal/dlq"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

const meshMessage = `{"payload":{"op":"c","source":{"db":"meshcentral","collection":"events","ts_ms":1700000000000},"after":"{\"eventType\":\"login\",\"agentId\":\"A1\"}"}}`

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    int
	outcomes model.Outcomes
}

func (d *fakeDispatcher) Dispatch(_ context.Context, env *model.CdcEnvelope) model.Outcomes {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.outcomes
}

type deadLetter struct {
	reason string
	err    error
	msg    *messaging.Message
}

type fakeDLQ struct {
	mu      sync.Mutex
	written []deadLetter
	err     error
}

func (q *fakeDLQ) Write(_ context.Context, msg *messaging.Message, reason string, err error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.written = append(q.written, deadLetter{reason: reason, err: err, msg: msg})
	return nil
}

type fakeBroker struct {
	mu        sync.Mutex
	streams   []nats.StreamConfig
	consumers []nats.ConsumerConfig
	handlers  map[string]messaging.MessageHandler
	stopped   []string
	failOn    string
}

func (b *fakeBroker) CreateOrUpdateStream(_ context.Context, cfg nats.StreamConfig) (jetstream.Stream, error) {
	b.streams = append(b.streams, cfg)
	return nil, nil
}

func (b *fakeBroker) CreateOrUpdateConsumer(_ context.Context, _ string, cfg nats.ConsumerConfig) (jetstream.Consumer, error) {
	if cfg.Name == b.failOn {
		return nil, errors.New("consumer rejected")
	}
	b.consumers = append(b.consumers, cfg)
	return nil, nil
}

func (b *fakeBroker) ConsumeMessages(_ context.Context, _, consumer string, handler messaging.MessageHandler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[string]messaging.MessageHandler)
	}
	b.handlers[consumer] = handler
	return func() {
		b.mu.Lock()
		b.stopped = append(b.stopped, consumer)
		b.mu.Unlock()
	}, nil
}

func newTestListener(d Dispatcher, q dlq.Writer, cfg Config) *Listener {
	return New(&fakeBroker{}, d, q, cfg, logging.Discard())
}

func message(data string, attempt, maxAttempts int) *messaging.Message {
	return &messaging.Message{
		ID:          "7",
		Subject:     "cdc.meshcentral.events",
		Data:        []byte(data),
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
	}
}

var meshTopic = Topic{Name: "meshcentral", Subject: messaging.SubjectCDCMeshCentral}

func TestHandle_Delivered(t *testing.T) {
	d := &fakeDispatcher{outcomes: model.Outcomes{{Route: "logs", Status: model.StatusDelivered}}}
	q := &fakeDLQ{}
	l := newTestListener(d, q, Config{})

	assert.NoError(t, l.handle(context.Background(), meshTopic, message(meshMessage, 1, 5)))
	assert.Equal(t, 1, d.calls)
	assert.Empty(t, q.written)
}

func TestHandle_DecodeErrorIsDeadLettered(t *testing.T) {
	d := &fakeDispatcher{}
	q := &fakeDLQ{}
	l := newTestListener(d, q, Config{})

	for _, data := range []string{`not json`, `{"payload":{"op":"x","source":{"db":"fleet"}}}`, `{"payload":{}}`} {
		assert.NoError(t, l.handle(context.Background(), meshTopic, message(data, 1, 5)), data)
	}
	assert.Zero(t, d.calls)
	require.Len(t, q.written, 3)
	for _, w := range q.written {
		assert.Equal(t, dlq.ReasonDecode, w.reason)
	}
}

func TestHandle_UnresolvedSourceIsAcked(t *testing.T) {
	d := &fakeDispatcher{outcomes: nil}
	q := &fakeDLQ{}
	l := newTestListener(d, q, Config{})

	assert.NoError(t, l.handle(context.Background(), meshTopic, message(meshMessage, 1, 5)))
	assert.Empty(t, q.written)
}

func TestHandle_RetryableFailureNaksWithBackoff(t *testing.T) {
	cause := errors.New("cassandra timeout")
	d := &fakeDispatcher{outcomes: model.Outcomes{
		{Route: "logs", Status: model.StatusSinkFailed, Retryable: true, Err: cause},
		{Route: "analytics", Status: model.StatusDelivered},
	}}
	q := &fakeDLQ{}
	l := newTestListener(d, q, Config{RetryBackoff: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}})

	tests := []struct {
		attempt int
		delay   time.Duration
	}{
		{attempt: 1, delay: time.Second},
		{attempt: 2, delay: 5 * time.Second},
		{attempt: 3, delay: 30 * time.Second},
		{attempt: 4, delay: 30 * time.Second},
	}
	for _, tt := range tests {
		err := l.handle(context.Background(), meshTopic, message(meshMessage, tt.attempt, 5))
		require.Error(t, err)

		delay, ok := messaging.NakDelay(err)
		require.True(t, ok)
		assert.Equal(t, tt.delay, delay, "attempt %d", tt.attempt)
		assert.ErrorIs(t, err, cause)
	}
	assert.Empty(t, q.written)
}

func TestHandle_RetryExhausted(t *testing.T) {
	cause := errors.New("cassandra timeout")
	d := &fakeDispatcher{outcomes: model.Outcomes{{Route: "logs", Status: model.StatusSinkFailed, Retryable: true, Err: cause}}}
	q := &fakeDLQ{}
	l := newTestListener(d, q, Config{})

	assert.NoError(t, l.handle(context.Background(), meshTopic, message(meshMessage, 5, 5)))
	require.Len(t, q.written, 1)
	assert.Equal(t, dlq.ReasonRetryExhausted, q.written[0].reason)
	assert.Equal(t, cause, q.written[0].err)
}

func TestHandle_FatalFailureIsDeadLettered(t *testing.T) {
	cause := errors.New("invalid query")
	d := &fakeDispatcher{outcomes: model.Outcomes{
		{Route: "logs", Status: model.StatusSinkFailed, Retryable: false, Err: cause},
		{Route: "analytics", Status: model.StatusDelivered},
	}}
	q := &fakeDLQ{}
	l := newTestListener(d, q, Config{})

	assert.NoError(t, l.handle(context.Background(), meshTopic, message(meshMessage, 1, 5)))
	require.Len(t, q.written, 1)
	assert.Equal(t, dlq.ReasonSinkFatal, q.written[0].reason)
	assert.Equal(t, cause, q.written[0].err)
}

func TestHandle_RetryablePreferredOverFatal(t *testing.T) {
	d := &fakeDispatcher{outcomes: model.Outcomes{
		{Route: "logs", Status: model.StatusSinkFailed, Retryable: false, Err: errors.New("invalid")},
		{Route: "analytics", Status: model.StatusSinkFailed, Retryable: true, Err: errors.New("timeout")},
	}}
	q := &fakeDLQ{}
	l := newTestListener(d, q, Config{})

	err := l.handle(context.Background(), meshTopic, message(meshMessage, 1, 5))
	_, ok := messaging.NakDelay(err)
	assert.True(t, ok)
	assert.Empty(t, q.written)
}

func TestHandle_TransformFailureIsOnlyLogged(t *testing.T) {
	d := &fakeDispatcher{outcomes: model.Outcomes{{Route: "logs", Status: model.StatusTransformFailed, Err: errors.New("no after")}}}
	q := &fakeDLQ{}
	l := newTestListener(d, q, Config{})

	assert.NoError(t, l.handle(context.Background(), meshTopic, message(meshMessage, 1, 5)))
	assert.Empty(t, q.written)
}

func TestHandle_DeadLetterWriteFailure(t *testing.T) {
	q := &fakeDLQ{err: errors.New("dlq unavailable")}
	l := newTestListener(&fakeDispatcher{}, q, Config{RetryBackoff: []time.Duration{2 * time.Second}})

	err := l.handle(context.Background(), meshTopic, message("garbage", 1, 5))
	delay, ok := messaging.NakDelay(err)
	require.True(t, ok, "message must be redelivered rather than lost")
	assert.Equal(t, 2*time.Second, delay)

	assert.NoError(t, l.handle(context.Background(), meshTopic, message("garbage", 5, 5)), "last attempt is acked")
}

func TestBackoff_Default(t *testing.T) {
	l := newTestListener(&fakeDispatcher{}, nil, Config{})
	assert.Equal(t, nats.DefaultNakDelay, l.backoff(1))
	assert.Equal(t, nats.DefaultNakDelay, l.backoff(0))
}

func TestListener_StartStop(t *testing.T) {
	broker := &fakeBroker{}
	d := &fakeDispatcher{outcomes: model.Outcomes{{Status: model.StatusDelivered}}}
	l := New(broker, d, nil, Config{MaxDeliver: 8, AckWait: time.Minute}, logging.Discard())

	require.NoError(t, l.Start(context.Background()))
	require.NoError(t, l.Start(context.Background()), "start is idempotent")

	require.Len(t, broker.streams, 1)
	assert.Equal(t, "CDC_EVENTS", broker.streams[0].Name)
	require.Len(t, broker.consumers, 4)
	for i, topic := range DefaultTopics() {
		c := broker.consumers[i]
		assert.Equal(t, "openframe-stream-"+topic.Name, c.Name)
		assert.Equal(t, topic.Subject, c.FilterSubject)
		assert.Equal(t, 8, c.MaxDeliver)
		assert.Equal(t, time.Minute, c.AckWait)
		assert.Equal(t, 1, c.MaxAckPending, "per-tool ordering")
	}

	handler := broker.handlers["openframe-stream-meshcentral"]
	require.NotNil(t, handler)
	assert.NoError(t, handler(context.Background(), message(meshMessage, 1, 8)))
	assert.Equal(t, 1, d.calls)

	l.Stop()
	assert.Len(t, broker.stopped, 3)
}

func TestListener_StartFailureStopsStartedConsumers(t *testing.T) {
	broker := &fakeBroker{failOn: "openframe-stream-fleet"}
	l := New(broker, &fakeDispatcher{}, nil, Config{}, logging.Discard())

	err := l.Start(context.Background())
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"openframe-stream-meshcentral", "openframe-stream-tactical"}, broker.stopped)
}
