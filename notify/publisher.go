// Package notify publishes webhook outcomes to RabbitMQ so that receipts and
// reporting can happen outside the payment server.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rabbitmq/amqp091-go"

	"github.com/vasaviseattle/site-tools/donation"
	"github.com/vasaviseattle/site-tools/logger"
)

const (
	Exchange = "donation_events"

	dialTimeout = 30 * time.Second
)

// Channel is the subset of *amqp091.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends each webhook event to the donation_events topic exchange,
// routed by event type.
type Publisher struct {
	conn *amqp091.Connection
	lggr logger.Logger

	mu      sync.Mutex
	channel Channel
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// Dial connects to the broker at amqpURL, retrying with backoff while it comes
// up. An empty URL returns donation.ErrNotConfigured.
func Dial(ctx context.Context, amqpURL string, lggr logger.Logger) (*Publisher, error) {
	if strings.TrimSpace(amqpURL) == "" {
		return nil, donation.ErrNotConfigured
	}

	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	lggr = lggr.Named("notify")

	operation := func() (*amqp091.Connection, error) {
		conn, err := amqp091.Dial(cleanURL)
		if err != nil {
			lggr.Warnw("broker not reachable yet", "err", err)
		}
		return conn, err
	}

	conn, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(dialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p, err := NewPublisher(channel, lggr)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn

	return p, nil
}

// NewPublisher declares the exchange on channel and returns a publisher
// using it.
func NewPublisher(channel Channel, lggr logger.Logger) (*Publisher, error) {
	err := channel.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}

	return &Publisher{channel: channel, lggr: lggr}, nil
}

// Record publishes event with its type as the routing key.
func (p *Publisher) Record(ctx context.Context, event donation.WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		Exchange,   // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.ReceivedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.lggr.Debugw("published webhook event", "exchange", Exchange, "routingKey", event.Type, "eventId", event.ID)

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
