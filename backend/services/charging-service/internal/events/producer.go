package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"campusev/backend/services/charging-service/internal/models"
)

const (
	DefaultTopic    = "charging.session.events"
	defaultBuffer   = 256
	flushTimeout    = 5 * time.Second
	publishTimeout  = 5 * time.Second
	headerEventType = "event_type"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes session lifecycle events to Kafka in the background.
// Most events are best effort: Publish never blocks and drops them when the
// buffer is full or the write fails. SessionCompleted feeds billing, so
// Publish waits for buffer room and the writer retries it with backoff.
type Producer struct {
	w        messageWriter
	inbox    chan outgoing
	producer string
	logger   *zap.Logger

	retryMin time.Duration
	retryMax time.Duration
}

type outgoing struct {
	msg     kafka.Message
	durable bool
}

// NewProducer builds a producer for topic on brokers.
func NewProducer(brokers []string, topic, producer string, logger *zap.Logger) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newProducer(w, producer, defaultBuffer, logger)
}

func newProducer(w messageWriter, producer string, buffer int, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{
		w:        w,
		inbox:    make(chan outgoing, buffer),
		producer: producer,
		logger:   logger,
		retryMin: 200 * time.Millisecond,
		retryMax: 5 * time.Second,
	}
}

// Run writes queued messages until ctx is cancelled, then flushes what is
// left and closes the writer.
func (p *Producer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush(nil)
			return p.w.Close()
		case out := <-p.inbox:
			if err := p.write(ctx, out); err != nil && out.durable && ctx.Err() != nil {
				p.flush(&out)
				return p.w.Close()
			}
		}
	}
}

func (p *Producer) flush(pending *outgoing) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if pending != nil {
		_ = p.write(ctx, *pending)
	}
	for {
		select {
		case out := <-p.inbox:
			_ = p.write(ctx, out)
		default:
			return
		}
	}
}

func (p *Producer) write(ctx context.Context, out outgoing) error {
	backoff := p.retryMin
	for {
		err := p.w.WriteMessages(ctx, out.msg)
		if err == nil {
			return nil
		}
		if !out.durable {
			p.logger.Warn("failed to publish session event",
				zap.String("key", string(out.msg.Key)),
				zap.Error(err),
			)
			return err
		}
		p.logger.Warn("retrying session event",
			zap.String("key", string(out.msg.Key)),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			p.logger.Error("session event lost",
				zap.String("key", string(out.msg.Key)),
				zap.Error(err),
			)
			return err
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, p.retryMax)
	}
}

// Publish implements the engine event sink. Pile-only updates are not
// session events and are skipped.
func (p *Producer) Publish(ctx context.Context, event models.SessionEvent) {
	if event.Type == models.EventPileUpdated {
		return
	}
	env, err := NewEnvelope(p.producer, event)
	if err != nil {
		p.logger.Error("failed to build session event", zap.Error(err))
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("failed to encode session event", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:     []byte(strconv.FormatInt(event.PileID, 10)),
		Value:   value,
		Time:    env.OccurredAt,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(env.EventType)}},
	}
	out := outgoing{msg: msg, durable: event.Type == models.EventSessionCompleted}
	if !out.durable {
		select {
		case p.inbox <- out:
		default:
			p.logger.Warn("session event buffer full, dropping event",
				zap.String("event_type", env.EventType),
				zap.Int64("pile_id", event.PileID),
			)
		}
		return
	}

	// The engine calls Publish after commit; a cancelled request must not
	// lose the billing event.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	select {
	case p.inbox <- out:
	case <-ctx.Done():
		p.logger.Error("session event buffer full, completed event lost",
			zap.Int64("pile_id", event.PileID),
			zap.String("correlation_id", env.CorrelationID),
		)
	}
}
