package queue

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ implements Transport over a single connection and channel. Queue
// declaration is idempotent; durable queues plus explicit acks give the
// at-least-once contract the agents rely on.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	mu       sync.Mutex
	declared map[string]bool
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{
		conn:     conn,
		channel:  ch,
		declared: make(map[string]bool),
	}, nil
}

func (r *RabbitMQ) declare(queue string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.declared[queue] {
		return nil
	}
	if _, err := r.channel.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	r.declared[queue] = true
	return nil
}

func (r *RabbitMQ) Publish(ctx context.Context, queue string, message []byte) error {
	if err := r.declare(queue); err != nil {
		return err
	}
	return r.channel.PublishWithContext(
		ctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         message,
		},
	)
}

func (r *RabbitMQ) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	if err := r.declare(queue); err != nil {
		return nil, err
	}

	msgs, err := r.channel.Consume(
		queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	out := make(chan Delivery)

	go func() {
		defer close(out)

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				delivery := Delivery{
					Body: msg.Body,
					Ack:  func() error { return msg.Ack(false) },
					Nack: func() error { return msg.Nack(false, true) },
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					msg.Nack(false, true)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		_ = r.conn.Close()
		return err
	}
	return r.conn.Close()
}
