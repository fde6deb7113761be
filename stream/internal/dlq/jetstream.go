package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/common/messaging"
	"github.com/openframe-oss/openframe-stream/common/messaging/nats"
	"github.com/openframe-oss/openframe-stream/stream/internal/metrics"
)

// Publisher publishes to JetStream and waits for the ack.
type Publisher interface {
	PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error)
}

// JetStreamQueue writes failed messages to the STREAM_DLQ stream.
// Safe for use across multiple processor instances.
type JetStreamQueue struct {
	pub     Publisher
	stream  jetstream.Stream
	logger  *logging.Logger
	written atomic.Uint64
}

// NewJetStreamQueue creates the DLQ stream if needed and returns a queue on it.
func NewJetStreamQueue(ctx context.Context, js *nats.JetStreamClient, logger *logging.Logger) (*JetStreamQueue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	stream, err := js.CreateOrUpdateStream(ctx, nats.DLQStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	q := NewQueue(js, logger)
	q.stream = stream
	q.logger.InfoContext(ctx, "DLQ stream ready", "stream", nats.DLQStream.Name)
	return q, nil
}

// NewQueue creates a queue over pub without touching stream configuration.
func NewQueue(pub Publisher, logger *logging.Logger) *JetStreamQueue {
	if logger == nil {
		logger = logging.Default()
	}
	return &JetStreamQueue{pub: pub, logger: logger}
}

// Write publishes msg to stream.dlq.<reason>.
func (q *JetStreamQueue) Write(ctx context.Context, msg *messaging.Message, reason string, err error) error {
	if q == nil {
		return nil
	}

	data, marshalErr := json.Marshal(NewFailedEvent(msg, reason, err))
	if marshalErr != nil {
		metrics.DLQErrors.Inc()
		return fmt.Errorf("marshal dlq entry: %w", marshalErr)
	}

	subject := messaging.DLQSubject(reason)
	if _, pubErr := q.pub.PublishSync(ctx, subject, data); pubErr != nil {
		metrics.DLQErrors.Inc()
		return fmt.Errorf("publish dlq entry to %s: %w", subject, pubErr)
	}

	q.written.Add(1)
	metrics.DLQWrites.WithLabelValues(reason).Inc()
	q.logger.WarnContext(ctx, "message dead-lettered", logging.Reason(reason), logging.Error(err))
	return nil
}

// Written returns the number of entries this instance has published.
func (q *JetStreamQueue) Written() uint64 {
	if q == nil {
		return 0
	}
	return q.written.Load()
}

// Stats returns DLQ metrics from JetStream.
func (q *JetStreamQueue) Stats(ctx context.Context) map[string]interface{} {
	if q == nil {
		return map[string]interface{}{
			"enabled": false,
			"backend": "jetstream",
		}
	}

	stats := map[string]interface{}{
		"enabled":       true,
		"backend":       "jetstream",
		"written_local": q.written.Load(),
	}
	if q.stream == nil {
		return stats
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		stats["error"] = err.Error()
		return stats
	}
	stats["total_messages"] = info.State.Msgs
	stats["total_bytes"] = info.State.Bytes
	stats["first_seq"] = info.State.FirstSeq
	stats["last_seq"] = info.State.LastSeq
	stats["consumer_count"] = info.State.Consumers
	return stats
}

// List returns up to limit dead-lettered messages, oldest first.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]FailedEvent, error) {
	if q == nil || q.stream == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}

	if limit <= 0 {
		limit = 100
	}

	// Ephemeral consumer so listing never moves a durable cursor
	consumer, err := q.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{messaging.SubjectDLQAll},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	var events []FailedEvent
	for msg := range msgs.Messages() {
		var failed FailedEvent
		if err := json.Unmarshal(msg.Data(), &failed); err != nil {
			q.logger.WarnContext(ctx, "skipping unparseable DLQ entry", logging.Error(err))
			continue
		}
		events = append(events, failed)
	}

	if msgs.Error() != nil {
		q.logger.WarnContext(ctx, "DLQ fetch completed with error", logging.Error(msgs.Error()))
	}

	return events, nil
}

// Purge removes all entries from the DLQ stream.
func (q *JetStreamQueue) Purge(ctx context.Context) error {
	if q == nil || q.stream == nil {
		return fmt.Errorf("dlq not enabled")
	}

	if err := q.stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge dlq stream: %w", err)
	}

	q.logger.InfoContext(ctx, "DLQ purged", "stream", nats.DLQStream.Name)
	return nil
}
