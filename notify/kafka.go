package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kendall-kelly/quickfix-api/dispatch"
)

// messageWriter is the part of *kafka.Writer used to publish events
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes every event as JSON to one topic, keyed by booking
// id so events of the same booking stay ordered within a partition.
type KafkaNotifier struct {
	writer messageWriter
}

// NewKafkaNotifier creates a notifier writing to topic on brokers
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (k *KafkaNotifier) NotifyBookingCreated(ctx context.Context, evt dispatch.Event) error {
	return k.publish(ctx, evt)
}

func (k *KafkaNotifier) NotifyStatusChanged(ctx context.Context, evt dispatch.Event) error {
	return k.publish(ctx, evt)
}

func (k *KafkaNotifier) NotifyTechnicianAssigned(ctx context.Context, evt dispatch.Event) error {
	return k.publish(ctx, evt)
}

func (k *KafkaNotifier) publish(ctx context.Context, evt dispatch.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("booking-%d", evt.Booking.ID)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "event_id", Value: []byte(evt.ID)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", evt.Type, err)
	}
	return nil
}

// Close flushes and closes the writer
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
