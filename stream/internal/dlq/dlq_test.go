package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/common/messaging"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) PublishSync(_ context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return &jetstream.PubAck{Stream: "STREAM_DLQ", Sequence: uint64(len(p.subjects))}, nil
}

func TestNewFailedEvent(t *testing.T) {
	t.Run("json payload is embedded", func(t *testing.T) {
		msg := &messaging.Message{ID: "42", Subject: "cdc.fleet.activities", Data: []byte(`{"payload":{}}`), Attempt: 3}
		failed := NewFailedEvent(msg, ReasonRetryExhausted, errors.New("cassandra unavailable"))

		assert.Equal(t, "cdc.fleet.activities", failed.Subject)
		assert.Equal(t, "42", failed.MessageID)
		assert.Equal(t, ReasonRetryExhausted, failed.Reason)
		assert.Equal(t, "cassandra unavailable", failed.Error)
		assert.Equal(t, 3, failed.Attempts)
		assert.JSONEq(t, `{"payload":{}}`, string(failed.Data))
		assert.Empty(t, failed.Raw)
		assert.False(t, failed.Timestamp.IsZero())
	})

	t.Run("non json payload is kept raw", func(t *testing.T) {
		msg := &messaging.Message{Subject: "cdc.fleet.activities", Data: []byte("not json")}
		failed := NewFailedEvent(msg, ReasonDecode, errors.New("malformed"))

		assert.Nil(t, failed.Data)
		assert.Equal(t, "not json", failed.Raw)
		assert.Equal(t, 1, failed.Attempts)
	})

	t.Run("nil message", func(t *testing.T) {
		failed := NewFailedEvent(nil, ReasonDecode, nil)
		assert.Equal(t, ReasonDecode, failed.Reason)
		assert.Empty(t, failed.Error)
	})
}

func TestJetStreamQueue_Write(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueue(pub, logging.Discard())

	msg := &messaging.Message{Subject: "cdc.meshcentral.events", Data: []byte("{broken"), Attempt: 1}
	require.NoError(t, q.Write(context.Background(), msg, ReasonDecode, errors.New("malformed envelope")))

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "stream.dlq.decode", pub.subjects[0])
	assert.Equal(t, uint64(1), q.Written())

	var failed FailedEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &failed))
	assert.Equal(t, "{broken", failed.Raw)
	assert.Equal(t, "malformed envelope", failed.Error)
}

func TestJetStreamQueue_WriteError(t *testing.T) {
	q := NewQueue(&fakePublisher{err: errors.New("no responders")}, logging.Discard())

	err := q.Write(context.Background(), &messaging.Message{Data: []byte("{}")}, ReasonSinkFatal, errors.New("rejected"))
	assert.Error(t, err)
	assert.Zero(t, q.Written())
}

func TestJetStreamQueue_Nil(t *testing.T) {
	var q *JetStreamQueue

	assert.NoError(t, q.Write(context.Background(), &messaging.Message{}, ReasonDecode, errors.New("x")))
	assert.Equal(t, false, q.Stats(context.Background())["enabled"])

	_, err := q.List(context.Background(), 10)
	assert.Error(t, err)
	assert.Error(t, q.Purge(context.Background()))
}

func TestJetStreamQueue_StatsWithoutStream(t *testing.T) {
	q := NewQueue(&fakePublisher{}, logging.Discard())
	_ = q.Write(context.Background(), &messaging.Message{Data: []byte("{}")}, ReasonSinkFatal, errors.New("x"))

	stats := q.Stats(context.Background())
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, uint64(1), stats["written_local"])
}

func TestNoop(t *testing.T) {
	var w Writer = Noop{}
	assert.NoError(t, w.Write(context.Background(), nil, ReasonDecode, nil))
}
