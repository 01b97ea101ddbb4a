package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishEvent(t *testing.T) {
	w := &captureWriter{}
	p := newProducer(w, "")

	err := p.PublishEvent(context.Background(), "dashboard.snapshots", []byte("u1"), "dashboard.snapshot.v1",
		map[string]any{"user_id": "u1", "warnings": 2})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "dashboard.snapshots", msg.Topic)
	assert.Equal(t, []byte("u1"), msg.Key)
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "u1", body["user_id"])

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "application/json", headers[HeaderContentType])
	assert.Equal(t, "dashboard.snapshot.v1", headers[HeaderEventType])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishErrors(t *testing.T) {
	p := newProducer(&captureWriter{err: errors.New("leader not available")}, "snappy")
	err := p.PublishEvent(context.Background(), "t", nil, "ev", 1)
	assert.ErrorContains(t, err, "write ev")

	err = p.PublishEvent(context.Background(), "t", nil, "ev", func() {})
	assert.ErrorContains(t, err, "marshal ev")
}

func TestNewProducer_Validates(t *testing.T) {
	_, err := NewProducer()
	assert.ErrorContains(t, err, "brokers are required")

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("brotli"), WithRequiredAcks(2))
	assert.ErrorContains(t, err, "unknown compression")
	assert.ErrorContains(t, err, "required acks")

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("none"))
	require.NoError(t, err)
	assert.Equal(t, "none", p.comp)
	require.NoError(t, p.Close())
}
