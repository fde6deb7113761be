package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/openframe-oss/openframe-stream/common/messaging"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Publisher publishes to JetStream and waits for the ack.
type Publisher interface {
	PublishMsgSync(ctx context.Context, msg *messaging.Message) (*jetstream.PubAck, error)
}

type payloadLimiter interface {
	MaxPayload() int64
}

// AnalyticsSink publishes AnalyticsMessages on event.<tool>.pinot.
type AnalyticsSink struct {
	pub        Publisher
	maxPayload int64
}

// NewAnalyticsSink creates a sink over pub. When pub knows the server's payload
// limit, oversize messages are rejected before publishing.
func NewAnalyticsSink(pub Publisher) *AnalyticsSink {
	s := &AnalyticsSink{pub: pub}
	if l, ok := pub.(payloadLimiter); ok {
		s.maxPayload = l.MaxPayload()
	}
	return s
}

// Push publishes m keyed by its partition key.
func (s *AnalyticsSink) Push(ctx context.Context, m *model.AnalyticsMessage) error {
	if m == nil {
		return Fatal(model.DestinationAnalytics, errors.New("nil message"))
	}

	data, err := json.Marshal(m)
	if err != nil {
		return Fatal(model.DestinationAnalytics, fmt.Errorf("marshal analytics message: %w", err))
	}
	if s.maxPayload > 0 && int64(len(data)) > s.maxPayload {
		return Fatal(model.DestinationAnalytics, fmt.Errorf("analytics message of %d bytes exceeds max payload %d", len(data), s.maxPayload))
	}

	msg := messaging.NewMessage(messaging.AnalyticsSubject(m.ToolName), data,
		messaging.WithHeader(messaging.HeaderPartitionKey, m.PartitionKey()),
		messaging.WithHeader("Content-Type", "application/json"),
	)

	if _, err := s.pub.PublishMsgSync(ctx, msg); err != nil {
		if errors.Is(err, natsgo.ErrMaxPayload) {
			return Fatal(model.DestinationAnalytics, err)
		}
		return Retryable(model.DestinationAnalytics, fmt.Errorf("publish %s: %w", msg.Subject, err))
	}
	return nil
}
