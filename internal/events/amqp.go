package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes events as persistent JSON messages to a topic
// exchange. The channel is reopened lazily after the broker closes it.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
	log      *slog.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

// DialAMQP connects to url and declares exchange as a durable topic exchange.
func DialAMQP(url, exchange string, log *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events.DialAMQP: dial: %w", err)
	}

	p := &AMQPPublisher{conn: conn, exchange: exchange, log: log}
	ch, err := p.channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("events.DialAMQP: declare exchange: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("events.AMQPPublisher: open channel: %w", err)
	}
	p.ch = ch

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err := <-closed; err != nil {
			p.log.Warn("amqp channel closed, reopening on next publish", "error", err)
		}
	}()
	return ch, nil
}

// Publish sends e with e.Type as the routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events.AMQPPublisher.Publish: encode: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         e.Type,
	})
	if err != nil {
		return fmt.Errorf("events.AMQPPublisher.Publish: %w", err)
	}
	return nil
}

// Close closes the connection and its channels.
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}
