package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// ProducerConfig holds the writer parameters.
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes risk events keyed by risk id so per-risk ordering is
// preserved across partitions.
type Producer struct {
	writer writerInterface
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer builds a Producer over a kafka.Writer.
func NewProducer(cfg ProducerConfig, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: w, logger: log}
}

// Publish sends one risk event.
func (p *Producer) Publish(ctx context.Context, event *RiskEvent) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeInternal, "producer closed")
	}
	if err := event.Validate(); err != nil {
		return err
	}

	value, err := event.Encode()
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.RiskID),
		Value: value,
		Time:  event.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("risk event publish failed",
			logging.Err(err),
			logging.String("risk_id", event.RiskID),
			logging.String("type", string(event.Type)))
		return errors.Wrap(err, errors.ErrCodeExternalService, "risk event publish failed")
	}
	return nil
}

// RiskSaved publishes a created or updated event carrying the text fields
// the worker re-embeds.
func (p *Producer) RiskSaved(ctx context.Context, a *risk.Assessment, created bool) error {
	eventType := EventRiskUpdated
	if created {
		eventType = EventRiskCreated
	}
	return p.Publish(ctx, &RiskEvent{
		Type:              eventType,
		RiskID:            a.ID,
		Title:             a.Title,
		ThreatDescription: a.ThreatDescription,
		Description:       a.Description,
		OccurredAt:        time.Now().UTC(),
	})
}

// RiskDeleted publishes a deletion event.
func (p *Producer) RiskDeleted(ctx context.Context, id string) error {
	return p.Publish(ctx, &RiskEvent{
		Type:       EventRiskDeleted,
		RiskID:     id,
		OccurredAt: time.Now().UTC(),
	})
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
