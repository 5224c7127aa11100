package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes alerts to a topic keyed by recipient, for downstream
// delivery services.
type Kafka struct {
	w   MessageWriter
	now func() time.Time
}

type alertEvent struct {
	Recipient string    `json:"recipient"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

func NewKafka(brokers []string, topic string) *Kafka {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &Kafka{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		now: time.Now,
	}
}

func (k *Kafka) Send(ctx context.Context, recipient, body string) error {
	if k == nil || k.w == nil {
		return ErrDisabled
	}
	value, err := json.Marshal(alertEvent{Recipient: recipient, Body: body, SentAt: k.now().UTC()})
	if err != nil {
		return fmt.Errorf("notify.Kafka.Send: %w", err)
	}
	if err := k.w.WriteMessages(ctx, kafka.Message{Key: []byte(recipient), Value: value}); err != nil {
		return fmt.Errorf("notify.Kafka.Send: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	if k == nil || k.w == nil {
		return nil
	}
	return k.w.Close()
}
