package storage

import (
	"context"
	"encoding/json"

	"liefrik/cart-svc/internal/domain"

	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: writer}
}

// PublishStorageEvent keys messages by session so one session's events stay
// ordered within a partition.
func (p *KafkaPublisher) PublishStorageEvent(ctx context.Context, event domain.StorageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Session),
		Value: payload,
	})
}
