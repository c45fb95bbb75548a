package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/smart-parking/internal/queue"
)

// EventPublisher receives slot events after committed transitions.
type EventPublisher interface {
	PublishSlotEvent(ctx context.Context, ev queue.SlotEvent) error
}

// Publisher publishes JSON messages to durable RabbitMQ queues, dialing
// once per message.
type Publisher struct {
	URL string
}

// Publish marshals v and sends it to queueName through the default
// exchange.  Messages are marked persistent.  Errors are logged and
// returned so the caller can choose to ignore them.
func (p *Publisher) Publish(ctx context.Context, queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", queueName, err)
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// PublishSlotEvent publishes ev to the slot events queue.
func (p *Publisher) PublishSlotEvent(ctx context.Context, ev queue.SlotEvent) error {
	return p.Publish(ctx, queue.SlotEventsQueue, ev)
}
