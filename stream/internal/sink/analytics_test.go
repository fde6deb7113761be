package sink

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openframe-oss/openframe-stream/common/messaging"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

type fakePublisher struct {
	published  []*messaging.Message
	err        error
	maxPayload int64
}

func (p *fakePublisher) PublishMsgSync(_ context.Context, msg *messaging.Message) (*jetstream.PubAck, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.published = append(p.published, msg)
	return &jetstream.PubAck{Stream: "ANALYTICS_EVENTS", Sequence: uint64(len(p.published))}, nil
}

func (p *fakePublisher) MaxPayload() int64 {
	return p.maxPayload
}

func TestAnalyticsSink_Push(t *testing.T) {
	pub := &fakePublisher{}
	s := NewAnalyticsSink(pub)

	require.NoError(t, s.Push(context.Background(), testAnalytics()))
	require.Len(t, pub.published, 1)

	msg := pub.published[0]
	assert.Equal(t, "event.meshcentral.pinot", msg.Subject)
	assert.Equal(t, "M100", msg.Metadata[messaging.HeaderPartitionKey])

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "login", body["eventType"])
	assert.Equal(t, "LOGIN", body["unifiedEventType"])
	assert.Equal(t, "M100", body["machineId"])
	assert.NotContains(t, body, "organizationId")
}

func TestAnalyticsSink_PartitionKeyFallsBackToTool(t *testing.T) {
	pub := &fakePublisher{}
	s := NewAnalyticsSink(pub)

	m := testAnalytics()
	m.MachineID = ""
	require.NoError(t, s.Push(context.Background(), m))
	assert.Equal(t, "meshcentral", pub.published[0].Metadata[messaging.HeaderPartitionKey])
}

func TestAnalyticsSink_Errors(t *testing.T) {
	t.Run("publish failure is retryable", func(t *testing.T) {
		s := NewAnalyticsSink(&fakePublisher{err: errors.New("nats: timeout")})
		err := s.Push(context.Background(), testAnalytics())
		require.Error(t, err)
		assert.True(t, IsRetryable(err))
	})

	t.Run("max payload from server is fatal", func(t *testing.T) {
		s := NewAnalyticsSink(&fakePublisher{err: natsgo.ErrMaxPayload})
		err := s.Push(context.Background(), testAnalytics())
		require.Error(t, err)
		assert.False(t, IsRetryable(err))
	})

	t.Run("oversize is rejected before publish", func(t *testing.T) {
		pub := &fakePublisher{maxPayload: 64}
		s := NewAnalyticsSink(pub)
		m := testAnalytics()
		m.OrganizationID = strings.Repeat("o", 100)

		err := s.Push(context.Background(), m)
		require.Error(t, err)
		assert.False(t, IsRetryable(err))
		assert.Empty(t, pub.published)
	})

	t.Run("nil message is fatal", func(t *testing.T) {
		s := NewAnalyticsSink(&fakePublisher{})
		err := s.Push(context.Background(), nil)
		var se *SinkError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, model.DestinationAnalytics, se.Destination)
		assert.Equal(t, KindFatal, se.Kind)
	})
}
