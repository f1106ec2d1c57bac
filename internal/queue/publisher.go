package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultBacklog     = 256
	defaultDialTimeout = 5 * time.Second
)

// ErrBacklogFull is returned by PublishAccountCreated when Run has fallen
// behind and the event was dropped.
var ErrBacklogFull = errors.New("rabbitmq: publish backlog full")

// Publisher sends account events to RabbitMQ.  PublishAccountCreated only
// queues the event; Run owns the connection and delivers queued events, so
// a slow or unreachable broker never holds up the caller.
type Publisher struct {
	URL         string
	DialTimeout time.Duration
	Logger      *slog.Logger

	events chan AccountCreatedEvent
}

// NewPublisher returns a Publisher holding up to backlog undelivered events.
// A non-positive backlog uses the default of 256.
func NewPublisher(url string, backlog int, logger *slog.Logger) *Publisher {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		URL:         url,
		DialTimeout: defaultDialTimeout,
		Logger:      logger,
		events:      make(chan AccountCreatedEvent, backlog),
	}
}

// PublishAccountCreated queues ev for delivery without blocking.
func (p *Publisher) PublishAccountCreated(ctx context.Context, ev AccountCreatedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Run delivers queued events until ctx is cancelled.  A failed delivery is
// logged and the event dropped; the next event re-dials.
func (p *Publisher) Run(ctx context.Context) error {
	var conn *amqp.Connection
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			var err error
			conn, err = p.send(ctx, conn, ev)
			if err != nil {
				p.Logger.Error("account-publisher: event dropped",
					"user_id", ev.UserID, "method", ev.Method, "error", err)
			}
		}
	}
}

// send publishes ev over conn, dialing first when conn is nil or closed.
// It returns the connection to reuse, which is nil after a failure.
func (p *Publisher) send(ctx context.Context, conn *amqp.Connection, ev AccountCreatedEvent) (*amqp.Connection, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return conn, fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	if conn == nil || conn.IsClosed() {
		conn, err = dial(p.URL, p.DialTimeout)
		if err != nil {
			return nil, err
		}
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(AccountCreatedQueue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, p.dialTimeout())
	defer cancel()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(pctx, "", AccountCreatedQueue, false, false, pub); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return conn, nil
}

func (p *Publisher) dialTimeout() time.Duration {
	if p.DialTimeout <= 0 {
		return defaultDialTimeout
	}
	return p.DialTimeout
}

// dial opens a connection whose TCP connect and AMQP handshake are both
// bounded by timeout.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	return conn, nil
}
