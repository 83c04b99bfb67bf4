package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kendall-kelly/quickfix-api/dispatch"
)

// publisher is the part of *amqp.Channel used to publish events
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes events to a topic exchange with the event type as
// routing key.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
}

// NewAMQPNotifier dials url and declares the durable topic exchange
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

func (a *AMQPNotifier) NotifyBookingCreated(ctx context.Context, evt dispatch.Event) error {
	return a.publish(ctx, evt)
}

func (a *AMQPNotifier) NotifyStatusChanged(ctx context.Context, evt dispatch.Event) error {
	return a.publish(ctx, evt)
}

func (a *AMQPNotifier) NotifyTechnicianAssigned(ctx context.Context, evt dispatch.Event) error {
	return a.publish(ctx, evt)
}

func (a *AMQPNotifier) publish(ctx context.Context, evt dispatch.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("amqp: marshal %s: %w", evt.Type, err)
	}
	err = a.ch.PublishWithContext(ctx, a.exchange, string(evt.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Timestamp:    evt.OccurredAt,
		Type:         string(evt.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close closes the channel and the connection
func (a *AMQPNotifier) Close() error {
	if c, ok := a.ch.(*amqp.Channel); ok && c != nil {
		_ = c.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
