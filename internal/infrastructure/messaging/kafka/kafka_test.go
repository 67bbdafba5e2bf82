package kafka

import (
	"context"
	stderrors "errors"
	"io"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	messages  []kafkago.Message
	committed []int64
	pos       int
}

func (r *fakeReader) FetchMessage(context.Context) (kafkago.Message, error) {
	if r.pos >= len(r.messages) {
		return kafkago.Message{}, io.EOF
	}
	msg := r.messages[r.pos]
	r.pos++
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func event(typ EventType, id string) *RiskEvent {
	return &RiskEvent{Type: typ, RiskID: id, Title: "Unauthorized DB access", OccurredAt: time.Now()}
}

func TestProducerPublishKeysByRiskID(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: logging.NewNopLogger()}

	require.NoError(t, p.Publish(context.Background(), event(EventRiskUpdated, "r-7")))

	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte("r-7"), w.messages[0].Key)

	decoded, err := DecodeRiskEvent(w.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, EventRiskUpdated, decoded.Type)
	assert.Equal(t, "r-7", decoded.RiskID)
}

func TestProducerRiskSavedEventType(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: logging.NewNopLogger()}
	a := &risk.Assessment{ID: "r-3", Title: "Unauthorized DB access"}

	require.NoError(t, p.RiskSaved(context.Background(), a, true))
	require.NoError(t, p.RiskSaved(context.Background(), a, false))
	require.NoError(t, p.RiskDeleted(context.Background(), "r-3"))

	require.Len(t, w.messages, 3)
	types := make([]EventType, 0, 3)
	for _, m := range w.messages {
		decoded, err := DecodeRiskEvent(m.Value)
		require.NoError(t, err)
		assert.Equal(t, "r-3", decoded.RiskID)
		types = append(types, decoded.Type)
	}
	assert.Equal(t, []EventType{EventRiskCreated, EventRiskUpdated, EventRiskDeleted}, types)
}

func TestProducerRejectsInvalidEvent(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}, logger: logging.NewNopLogger()}

	err := p.Publish(context.Background(), &RiskEvent{Type: "risk.exploded", RiskID: "r-1"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	err = p.Publish(context.Background(), &RiskEvent{Type: EventRiskCreated})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestProducerWriteFailure(t *testing.T) {
	w := &fakeWriter{err: stderrors.New("broker down")}
	p := &Producer{writer: w, logger: logging.NewNopLogger()}

	err := p.Publish(context.Background(), event(EventRiskCreated, "r-1"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestConsumerRunHandlesAndCommits(t *testing.T) {
	e1, err := event(EventRiskCreated, "r-1").Encode()
	require.NoError(t, err)
	e2, err := event(EventRiskDeleted, "r-2").Encode()
	require.NoError(t, err)

	r := &fakeReader{messages: []kafkago.Message{
		{Offset: 10, Value: e1},
		{Offset: 11, Value: []byte("not-json")},
		{Offset: 12, Value: e2},
	}}
	c := &Consumer{reader: r, logger: logging.NewNopLogger()}

	var handled []string
	err = c.Run(context.Background(), func(_ context.Context, e *RiskEvent) error {
		handled = append(handled, e.RiskID)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"r-1", "r-2"}, handled)
	// The undecodable message is committed and skipped.
	assert.Equal(t, []int64{10, 11, 12}, r.committed)
}

func TestConsumerLeavesFailedHandlingUncommitted(t *testing.T) {
	raw, err := event(EventRiskUpdated, "r-9").Encode()
	require.NoError(t, err)

	r := &fakeReader{messages: []kafkago.Message{{Offset: 3, Value: raw}}}
	c := &Consumer{reader: r, logger: logging.NewNopLogger()}

	err = c.Run(context.Background(), func(context.Context, *RiskEvent) error {
		return stderrors.New("embedding service down")
	})
	require.NoError(t, err)
	assert.Empty(t, r.committed)
}
