package kafka

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// ConsumerConfig holds the reader parameters.
type ConsumerConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
}

// Handler processes one decoded risk event. Returning an error leaves the
// message uncommitted so the group redelivers it.
type Handler func(ctx context.Context, event *RiskEvent) error

// readerInterface abstracts kafka.Reader for testing.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a consumer-group loop over the risk event topic.
type Consumer struct {
	reader readerInterface
	logger logging.Logger
}

// NewConsumer builds a Consumer in the given consumer group.
func NewConsumer(cfg ConsumerConfig, log logging.Logger) *Consumer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: 0, // explicit commits only
		StartOffset:    kafka.FirstOffset,
		MaxWait:        time.Second,
	})
	return &Consumer{reader: r, logger: log}
}

// Run fetches, decodes and handles messages until ctx is cancelled. A message
// that fails to decode is committed and skipped; redelivery cannot fix it.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "event fetch failed")
		}

		event, err := DecodeRiskEvent(msg.Value)
		if err != nil {
			c.logger.Warn("skipping undecodable risk event",
				logging.Err(err),
				logging.Int64("offset", msg.Offset))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, errors.ErrCodeExternalService, "event commit failed")
			}
			continue
		}

		if err := handle(ctx, event); err != nil {
			c.logger.Error("risk event handling failed",
				logging.Err(err),
				logging.String("risk_id", event.RiskID),
				logging.String("type", string(event.Type)))
			// Leave uncommitted; the group will redeliver.
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "event commit failed")
		}
	}
}

// Close shuts the group reader down.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
