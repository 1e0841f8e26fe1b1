package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher writes to a durable topic exchange using the event type as
// the routing key. A closed channel or connection is reopened on the next
// publish.
type RabbitPublisher struct {
	url      string
	exchange string
	dial     func(url string) (*amqp.Connection, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	p := &RabbitPublisher{url: url, exchange: exchange, dial: amqp.Dial}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

// channel returns an open channel, redialing and redeclaring the exchange
// when the previous one is gone. Callers hold p.mu.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.ch = nil

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := p.dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dialing rabbitmq: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return ch, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, e Event) error {
	body, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.OccurredAt,
		Type:         string(e.Type),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	// One retry covers a channel that closed since the last publish.
	for attempt := 0; ; attempt++ {
		ch, err := p.channel()
		if err != nil {
			return err
		}
		err = ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, msg)
		if errors.Is(err, amqp.ErrClosed) && attempt == 0 {
			p.ch = nil
			continue
		}
		return err
	}
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, ignoreClosed(p.ch.Close()))
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, ignoreClosed(p.conn.Close()))
		p.conn = nil
	}
	return errors.Join(errs...)
}

func ignoreClosed(err error) error {
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
