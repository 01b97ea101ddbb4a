package repository

import (
	"context"
	"fmt"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	"Symbiotic/pkg/kafka"
)

// SnapshotEventType tags snapshot summaries on the wire.
const SnapshotEventType = "dashboard.snapshot.v1"

// KafkaSnapshotPublisher publishes snapshot summaries keyed by user id.
type KafkaSnapshotPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaSnapshotPublisher(p *kafka.Producer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: p, topic: topic}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, ev models.SnapshotEvent) error {
	if err := p.producer.PublishEvent(ctx, p.topic, []byte(ev.UserID), SnapshotEventType, ev); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (p *KafkaSnapshotPublisher) Close() error {
	return p.producer.Close()
}

// NopSnapshotPublisher drops events when Kafka is disabled.
type NopSnapshotPublisher struct{}

func (NopSnapshotPublisher) Publish(context.Context, models.SnapshotEvent) error { return nil }
func (NopSnapshotPublisher) Close() error                                        { return nil }

var (
	_ domrepo.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)
	_ domrepo.SnapshotPublisher = NopSnapshotPublisher{}
)
