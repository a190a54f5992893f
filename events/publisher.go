// events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BotCoder254/streamvibes/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher announces that a video left processing.
type Publisher interface {
	PublishStatus(ctx context.Context, e models.StatusEvent) error
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher sends persistent JSON messages to a topic exchange with
// routing key video.<status>.
type AMQPPublisher struct {
	ch       amqpChannel
	exchange string
}

func NewAMQPPublisher(ch *amqp.Channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

func RoutingKey(status models.Status) string {
	return "video." + string(status)
}

func (p *AMQPPublisher) PublishStatus(ctx context.Context, e models.StatusEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(e.Status), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.VideoID,
		Timestamp:    e.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKey(e.Status), err)
	}
	return nil
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatus(context.Context, models.StatusEvent) error { return nil }
