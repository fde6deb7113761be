// Package nats provides JetStream support for durable, persistent messaging.
package nats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/openframe-oss/openframe-stream/common/messaging"
)

// DefaultNakDelay is used when a handler fails without asking for a specific delay.
const DefaultNakDelay = 5 * time.Second

// JetStreamClient extends Client with JetStream persistence capabilities.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig defines a JetStream stream configuration.
type StreamConfig struct {
	// Name is the stream name.
	Name string

	// Subjects are the subjects this stream captures.
	Subjects []string

	// MaxAge is the maximum age of messages in the stream.
	MaxAge time.Duration

	// MaxBytes is the maximum total size of the stream.
	MaxBytes int64

	// MaxMsgs is the maximum number of messages in the stream.
	MaxMsgs int64

	// Retention policy (LimitsPolicy, InterestPolicy, WorkQueuePolicy).
	Retention jetstream.RetentionPolicy

	// Storage type (FileStorage, MemoryStorage).
	Storage jetstream.StorageType
}

// ConsumerConfig defines a JetStream consumer configuration.
type ConsumerConfig struct {
	// Name is the durable consumer name.
	Name string

	// FilterSubject filters which messages this consumer receives.
	FilterSubject string

	// AckWait is time to wait for acknowledgment before redelivery.
	AckWait time.Duration

	// MaxDeliver is maximum delivery attempts before giving up.
	MaxDeliver int

	// MaxAckPending is maximum unacknowledged messages.
	// A value of 1 keeps delivery strictly ordered.
	MaxAckPending int
}

// DefaultStreamConfig returns sensible defaults for a stream.
func DefaultStreamConfig(name string, subjects []string) StreamConfig {
	return StreamConfig{
		Name:      name,
		Subjects:  subjects,
		MaxAge:    24 * time.Hour,
		MaxBytes:  1024 * 1024 * 1024, // 1GB
		MaxMsgs:   1000000,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	}
}

// DefaultConsumerConfig returns sensible defaults for a consumer.
func DefaultConsumerConfig(name, filterSubject string) ConsumerConfig {
	return ConsumerConfig{
		Name:          name,
		FilterSubject: filterSubject,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		MaxAckPending: 1,
	}
}

// NewJetStreamClient creates a JetStream-enabled client.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamClient{
		Client: client,
		js:     js,
	}, nil
}

// JetStream exposes the underlying JetStream context.
func (c *JetStreamClient) JetStream() jetstream.JetStream {
	return c.js
}

// CheckHealth verifies the server answers JetStream API requests.
func (c *JetStreamClient) CheckHealth(ctx context.Context) error {
	if err := c.Client.CheckHealth(ctx); err != nil {
		return err
	}
	if _, err := c.js.AccountInfo(ctx); err != nil {
		return fmt.Errorf("jetstream unavailable: %w", err)
	}
	return nil
}

// CreateOrUpdateStream creates or updates a stream.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		MaxMsgs:   cfg.MaxMsgs,
		Retention: cfg.Retention,
		Storage:   cfg.Storage,
	}

	stream, err := c.js.CreateOrUpdateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.Name, err)
	}

	return stream, nil
}

// CreateOrUpdateConsumer creates or updates a durable consumer.
func (c *JetStreamClient) CreateOrUpdateConsumer(ctx context.Context, streamName string, cfg ConsumerConfig) (jetstream.Consumer, error) {
	consumerCfg := jetstream.ConsumerConfig{
		Name:          cfg.Name,
		Durable:       cfg.Name,
		FilterSubject: cfg.FilterSubject,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxAckPending,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}

	stream, err := c.js.Stream(ctx, streamName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", streamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create/update consumer %s: %w", cfg.Name, err)
	}

	return consumer, nil
}

// PublishSync publishes a message and waits for acknowledgment.
func (c *JetStreamClient) PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	return c.js.Publish(ctx, subject, data)
}

// PublishMsgSync publishes a message with headers and waits for acknowledgment.
func (c *JetStreamClient) PublishMsgSync(ctx context.Context, msg *messaging.Message) (*jetstream.PubAck, error) {
	return c.js.PublishMsg(ctx, toNatsMsg(msg))
}

// ConsumeMessages starts consuming messages from a consumer with the given handler.
// Callbacks for one consumer run one at a time. The returned stop function drains
// the consumer, waiting for the in-flight callback to finish.
func (c *JetStreamClient) ConsumeMessages(ctx context.Context, streamName, consumerName string, handler messaging.MessageHandler) (func(), error) {
	stream, err := c.js.Stream(ctx, streamName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", streamName, err)
	}

	consumer, err := stream.Consumer(ctx, consumerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer %s: %w", consumerName, err)
	}

	maxDeliver := consumer.CachedInfo().Config.MaxDeliver
	consumeCtx, cancel := context.WithCancel(ctx)

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		m := jetstreamToMessage(msg, maxDeliver)

		if err := handler(consumeCtx, m); err != nil {
			delay, ok := messaging.NakDelay(err)
			if !ok {
				delay = DefaultNakDelay
			}
			_ = msg.NakWithDelay(delay)
			return
		}

		_ = msg.Ack()
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	return func() {
		cons.Drain()
		<-cons.Closed()
		cancel()
	}, nil
}

func jetstreamToMessage(msg jetstream.Msg, maxDeliver int) *messaging.Message {
	m := &messaging.Message{
		Subject:     msg.Subject(),
		Data:        msg.Data(),
		Metadata:    headerMap(msg.Headers()),
		Timestamp:   time.Now(),
		MaxAttempts: maxDeliver,
	}

	if meta, err := msg.Metadata(); err == nil {
		m.ID = strconv.FormatUint(meta.Sequence.Stream, 10)
		m.Attempt = int(meta.NumDelivered)
		m.Timestamp = meta.Timestamp
	}

	return m
}

// Predefined stream configurations for the stream processor.
var (
	// CDCEventsStream captures Debezium change events from every tool database.
	CDCEventsStream = StreamConfig{
		Name:      "CDC_EVENTS",
		Subjects:  []string{messaging.SubjectCDCAll},
		MaxAge:    7 * 24 * time.Hour,
		MaxBytes:  5 * 1024 * 1024 * 1024, // 5GB
		MaxMsgs:   10000000,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	}

	// AnalyticsEventsStream captures analytics events for the Pinot ingestion job.
	AnalyticsEventsStream = StreamConfig{
		Name:      "ANALYTICS_EVENTS",
		Subjects:  []string{messaging.SubjectAnalyticsAll, messaging.SubjectMachines},
		MaxAge:    72 * time.Hour,
		MaxBytes:  2 * 1024 * 1024 * 1024, // 2GB
		MaxMsgs:   5000000,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	}

	// DLQStream captures messages the processor could not deliver.
	DLQStream = StreamConfig{
		Name:      "STREAM_DLQ",
		Subjects:  []string{messaging.SubjectDLQAll},
		MaxAge:    7 * 24 * time.Hour,
		MaxBytes:  1024 * 1024 * 1024, // 1GB
		MaxMsgs:   1000000,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	}
)
