// Package rabbitmq announces finished games on a RabbitMQ queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"bilgi-quiz-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue receives game.completed events when no queue is configured.
const DefaultQueue = "quiz.game.completed"

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher implements app.EventPublisher. One AMQP channel is shared and
// guarded by a mutex because channels are not safe for concurrent publishes.
type Publisher struct {
	conn  *amqp.Connection
	queue string

	mu      sync.Mutex
	channel publishChannel
	closer  func() error
}

// Dial connects to url and declares a durable queue.
func Dial(url, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return &Publisher{conn: conn, queue: queue, channel: ch, closer: ch.Close}, nil
}

func newPublisher(ch publishChannel, queue string) *Publisher {
	return &Publisher{queue: queue, channel: ch}
}

// PublishGameCompleted sends event as persistent JSON.
func (p *Publisher) PublishGameCompleted(ctx context.Context, event domain.GameCompleted) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode game.completed: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.GameID,
			Type:         "game.completed",
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish game.completed: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.closer != nil {
		_ = p.closer()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
