package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	dialTimeout    = 5 * time.Second
	// redialInterval is the minimum gap between reconnect attempts.
	redialInterval = 5 * time.Second
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// AMQPPublisher sends events to a durable topic exchange, routed by type.
// A dropped connection is redialled on the next Publish.
type AMQPPublisher struct {
	mu       sync.Mutex
	url      string
	exchange string
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	lastDial time.Time
	closed   bool
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect dials, opens a channel and declares the exchange. Callers hold mu
// or own p exclusively.
func (p *AMQPPublisher) connect() error {
	p.lastDial = time.Now()

	conn, err := amqp091.DialConfig(p.url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.conn, p.channel = conn, channel
	return nil
}

func (p *AMQPPublisher) release() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) live() bool {
	return p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed()
}

// ensureOpen reconnects a dropped connection, at most once per redialInterval.
func (p *AMQPPublisher) ensureOpen() error {
	if p.closed {
		return ErrPublisherClosed
	}
	if p.live() {
		return nil
	}
	p.release()
	if wait := redialInterval - time.Since(p.lastDial); wait > 0 {
		return fmt.Errorf("AMQP connection down, next reconnect in %s", wait.Round(time.Millisecond))
	}
	return p.connect()
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureOpen(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg)
	if errors.Is(err, amqp091.ErrClosed) {
		// The broker went away between the liveness check and the write.
		p.release()
		p.lastDial = time.Time{}
		if err = p.ensureOpen(); err == nil {
			err = p.channel.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg)
		}
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var err error
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}
