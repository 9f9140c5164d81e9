package consumer

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
)

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// Handler processes one message value. Validation errors mark the message
// as poison and it is committed anyway; other errors are retried.
type Handler func(ctx context.Context, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads session events with manual offset commits.
type Consumer struct {
	r       messageReader
	logger  *zap.Logger
	backoff time.Duration
}

// New builds a group consumer for topic.
func New(brokers []string, group, topic string, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	return newConsumer(r, logger)
}

func newConsumer(r messageReader, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{r: r, logger: logger, backoff: minBackoff}
}

// Run dispatches messages to h until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	defer c.r.Close()
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.handle(ctx, h, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) error {
	wait := c.backoff
	for {
		err := h(ctx, m.Value)
		if err == nil {
			return nil
		}
		if apperrors.HasCode(err, apperrors.CodeValidation) {
			c.logger.Error("skipping malformed message",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Warn("message handling failed, retrying",
			zap.Int64("offset", m.Offset),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, maxBackoff)
	}
}
