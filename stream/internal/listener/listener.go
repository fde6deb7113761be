// Package listener consumes CDC subjects from JetStream and drives each message
// through decode, dispatch and the retry/dead-letter policy.
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/common/messaging"
	"github.com/openframe-oss/openframe-stream/common/messaging/nats"
	"github.com/openframe-oss/openframe-stream/stream/internal/decoder"
	"github.com/openframe-oss/openframe-stream/stream/internal/dlq"
	"github.com/openframe-oss/openframe-stream/stream/internal/metrics"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Message results recorded in metrics.
const (
	resultDelivered      = "delivered"
	resultPartial        = "partial"
	resultSkipped        = "skipped"
	resultDecodeError    = "decode_error"
	resultRetry          = "retry"
	resultRetryExhausted = "retry_exhausted"
	resultSinkFatal      = "sink_fatal"
)

// Topic is one inbound subject with its own durable consumer.
type Topic struct {
	Name    string
	Subject string
}

// DefaultTopics consumes each integrated tool, and OpenFrame's own inventory
// database, on its own subject.
func DefaultTopics() []Topic {
	return []Topic{
		{Name: "meshcentral", Subject: messaging.SubjectCDCMeshCentral},
		{Name: "tactical", Subject: messaging.SubjectCDCTacticalRMM},
		{Name: "fleet", Subject: messaging.SubjectCDCFleet},
		{Name: "openframe", Subject: messaging.SubjectCDCOpenFrame},
	}
}

// Config controls consumer creation and redelivery.
type Config struct {
	Stream         string
	ConsumerPrefix string
	Topics         []Topic
	MaxDeliver     int
	AckWait        time.Duration
	RetryBackoff   []time.Duration
}

// Broker is the JetStream surface the listener needs.
type Broker interface {
	CreateOrUpdateStream(ctx context.Context, cfg nats.StreamConfig) (jetstream.Stream, error)
	CreateOrUpdateConsumer(ctx context.Context, streamName string, cfg nats.ConsumerConfig) (jetstream.Consumer, error)
	ConsumeMessages(ctx context.Context, streamName, consumerName string, handler messaging.MessageHandler) (func(), error)
}

// Dispatcher delivers one decoded envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *model.CdcEnvelope) model.Outcomes
}

// Listener runs one durable consumer per topic. Callbacks for a topic are
// serialised; topics run concurrently.
type Listener struct {
	broker     Broker
	dispatcher Dispatcher
	dlq        dlq.Writer
	cfg        Config
	logger     *logging.Logger

	mu      sync.Mutex
	stops   []func()
	running bool
}

// New creates a Listener. A nil dead-letter writer drops dead letters.
func New(broker Broker, dispatcher Dispatcher, w dlq.Writer, cfg Config, logger *logging.Logger) *Listener {
	if w == nil {
		w = dlq.Noop{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Stream == "" {
		cfg.Stream = nats.CDCEventsStream.Name
	}
	if cfg.ConsumerPrefix == "" {
		cfg.ConsumerPrefix = "openframe-stream"
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = DefaultTopics()
	}
	return &Listener{
		broker:     broker,
		dispatcher: dispatcher,
		dlq:        w,
		cfg:        cfg,
		logger:     logger,
	}
}

// ConsumerName returns the durable consumer name for topic.
func (l *Listener) ConsumerName(topic Topic) string {
	return l.cfg.ConsumerPrefix + "-" + topic.Name
}

// Start ensures the inbound stream and consumers exist and begins consuming.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	streamCfg := nats.CDCEventsStream
	streamCfg.Name = l.cfg.Stream
	if _, err := l.broker.CreateOrUpdateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("ensure stream %s: %w", l.cfg.Stream, err)
	}

	for _, topic := range l.cfg.Topics {
		stop, err := l.startTopic(ctx, topic)
		if err != nil {
			l.stopLocked()
			return err
		}
		l.stops = append(l.stops, stop)
		l.logger.InfoContext(ctx, "consumer started",
			"consumer", l.ConsumerName(topic), logging.Subject(topic.Subject))
	}

	l.running = true
	return nil
}

func (l *Listener) startTopic(ctx context.Context, topic Topic) (func(), error) {
	name := l.ConsumerName(topic)

	consumerCfg := nats.DefaultConsumerConfig(name, topic.Subject)
	if l.cfg.MaxDeliver > 0 {
		consumerCfg.MaxDeliver = l.cfg.MaxDeliver
	}
	if l.cfg.AckWait > 0 {
		consumerCfg.AckWait = l.cfg.AckWait
	}

	if _, err := l.broker.CreateOrUpdateConsumer(ctx, l.cfg.Stream, consumerCfg); err != nil {
		return nil, fmt.Errorf("ensure consumer %s: %w", name, err)
	}

	stop, err := l.broker.ConsumeMessages(ctx, l.cfg.Stream, name, func(ctx context.Context, msg *messaging.Message) error {
		return l.handle(ctx, topic, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", name, err)
	}
	return stop, nil
}

// Stop drains every consumer, waiting for in-flight messages to finish.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Listener) stopLocked() {
	for _, stop := range l.stops {
		stop()
	}
	l.stops = nil
	l.running = false
}

// handle processes one delivery. A nil return acks the message; a Nak error
// asks for redelivery after the backoff for this attempt.
func (l *Listener) handle(ctx context.Context, topic Topic, msg *messaging.Message) error {
	ctx = logging.WithMessageID(ctx, msg.ID)
	ctx = logging.WithSubject(ctx, msg.Subject)
	start := time.Now()

	result, err := l.process(ctx, msg)

	metrics.MessagesTotal.WithLabelValues(topic.Name, result).Inc()
	metrics.MessageDuration.WithLabelValues(topic.Name).Observe(time.Since(start).Seconds())
	return err
}

func (l *Listener) process(ctx context.Context, msg *messaging.Message) (string, error) {
	env, err := decoder.DecodeJSON(msg.Data)
	if err != nil {
		l.logger.WarnContext(ctx, "undecodable CDC message", logging.Error(err))
		return resultDecodeError, l.deadLetter(ctx, msg, dlq.ReasonDecode, err)
	}

	outcomes := l.dispatcher.Dispatch(ctx, env)
	if outcomes == nil {
		return resultSkipped, nil
	}

	switch {
	case outcomes.Retryable():
		cause := outcomes.FirstError(true)
		if msg.LastAttempt() {
			l.logger.ErrorContext(ctx, "delivery retries exhausted",
				logging.Attempt(msg.Attempt), logging.Error(cause))
			return resultRetryExhausted, l.deadLetter(ctx, msg, dlq.ReasonRetryExhausted, cause)
		}
		delay := l.backoff(msg.Attempt)
		l.logger.WarnContext(ctx, "delivery failed, scheduling redelivery",
			logging.Attempt(msg.Attempt), logging.Duration(delay), logging.Error(cause))
		return resultRetry, messaging.Nak(delay, cause)

	case outcomes.Fatal():
		return resultSinkFatal, l.deadLetter(ctx, msg, dlq.ReasonSinkFatal, outcomes.FirstError(false))
	}

	for _, o := range outcomes {
		if o.Failed() {
			return resultPartial, nil
		}
	}
	return resultDelivered, nil
}

// deadLetter writes msg to the DLQ. If the write fails the message is
// redelivered rather than lost, unless this was its last attempt.
func (l *Listener) deadLetter(ctx context.Context, msg *messaging.Message, reason string, cause error) error {
	err := l.dlq.Write(ctx, msg, reason, cause)
	if err == nil {
		return nil
	}

	l.logger.ErrorContext(ctx, "dead-letter write failed", logging.Reason(reason), logging.Error(err))
	if msg.LastAttempt() {
		return nil
	}
	return messaging.Nak(l.backoff(msg.Attempt), errors.Join(cause, err))
}

// backoff returns the redelivery delay after the given delivery attempt.
func (l *Listener) backoff(attempt int) time.Duration {
	if len(l.cfg.RetryBackoff) == 0 {
		return nats.DefaultNakDelay
	}
	i := attempt - 1
	if i < 0 {
		i = 0
	}
	if i >= len(l.cfg.RetryBackoff) {
		i = len(l.cfg.RetryBackoff) - 1
	}
	return l.cfg.RetryBackoff[i]
}
