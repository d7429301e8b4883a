// Package eventbus publishes the reservation engine's domain events to
// RabbitMQ on the cinema_events topic exchange, and implements the
// retry/DLQ header machinery for redelivered messages. Publishing is
// fire-and-forget: a crash between a DB commit and a publish call can
// lose the event, an acknowledged limitation of at-least-once delivery.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange and queue topology.
const (
	EventsExchange = "cinema_events"
	RetryExchange  = "cinema_retry"
	DLQExchange    = "cinema_dlq"

	QueueReservationCreated = "reservation_created_queue"
	QueueEmailNotification  = "email_notification_queue"
	QueueAnalytics          = "analytics_queue"
	QueueSeatReleased       = "seat_released_queue"
	QueueRetry              = "cinema_retry_queue"
	QueueDLQ                = "cinema_dlq_queue"
)

// Routing keys for the four core events.
const (
	RoutingReservationCreated = "reservation.created"
	RoutingPaymentConfirmed   = "payment.confirmed"
	RoutingReservationExpired = "reservation.expired"
	RoutingSeatReleased       = "seat.released"
)

// Retry headers preserved/updated on each redelivery hop.
const (
	HeaderRetryCount       = "x-retry-count"
	HeaderOriginalExchange = "x-original-exchange"
	HeaderOriginalRouting  = "x-original-routing-key"
	HeaderLastError        = "x-last-error"
)

// RetryConfig governs the backoff applied to a redelivered message and
// the point at which it is diverted to the DLQ.
type RetryConfig struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// DefaultRetryConfig returns the overridable default retry constants.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		MaxRetries: 5,
	}
}

// NextDelay returns min(maxDelay, baseDelay * 2^n) for a message whose
// x-retry-count header currently holds n.
func (c RetryConfig) NextDelay(retryCount int) time.Duration {
	delay := c.BaseDelay
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// ReservationCreated is published once per newly-created PENDING
// reservation.
type ReservationCreated struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	SeatID    string `json:"seatId"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expiresAt"`
}

// PaymentConfirmed is published once per successful confirmation.
type PaymentConfirmed struct {
	ReservationID string `json:"reservationId"`
	UserID        string `json:"userId"`
	SeatID        string `json:"seatId"`
	Amount        string `json:"amount"`
	Timestamp     string `json:"timestamp"`
}

// ReservationExpired is published once per reservation reaped for
// passing its expiry deadline.
type ReservationExpired struct {
	ReservationID string `json:"reservationId"`
	SeatID        string `json:"seatId"`
	UserID        string `json:"userId"`
	Reason        string `json:"reason"`
	Timestamp     string `json:"timestamp"`
}

// SeatReleased is published alongside ReservationExpired.
type SeatReleased struct {
	SeatID        string `json:"seatId"`
	ReservationID string `json:"reservationId"`
	UserID        string `json:"userId"`
	Reason        string `json:"reason"`
	Timestamp     string `json:"timestamp"`
}

// Publisher publishes persistent messages to the cinema_events
// exchange and declares the retry/DLQ topology so consumers can rely
// on it existing. It keeps one channel open for the lifetime of the
// process.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to RabbitMQ at uri and declares the full exchange/queue
// topology.
func Dial(uri string) (*Publisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("eventbus: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("eventbus: channel: %w", err)
	}
	p := &Publisher{conn: conn, ch: ch}
	if err := p.declareTopology(); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) declareTopology() error {
	for _, ex := range []string{EventsExchange, RetryExchange, DLQExchange} {
		if err := p.ch.ExchangeDeclare(ex, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("eventbus: declare exchange %s: %w", ex, err)
		}
	}
	durableQueues := map[string]string{
		QueueReservationCreated: RoutingReservationCreated,
		QueueEmailNotification:  RoutingPaymentConfirmed,
		QueueAnalytics:          RoutingPaymentConfirmed,
		QueueSeatReleased:       RoutingSeatReleased,
	}
	for q, rk := range durableQueues {
		if _, err := p.ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("eventbus: declare queue %s: %w", q, err)
		}
		if err := p.ch.QueueBind(q, rk, EventsExchange, false, nil); err != nil {
			return fmt.Errorf("eventbus: bind queue %s: %w", q, err)
		}
	}
	// The retry queue has no consumer; messages dead-letter back to
	// cinema_events using their original routing key once their
	// per-message TTL elapses.
	if _, err := p.ch.QueueDeclare(QueueRetry, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": EventsExchange,
	}); err != nil {
		return fmt.Errorf("eventbus: declare retry queue: %w", err)
	}
	if err := p.ch.QueueBind(QueueRetry, "#", RetryExchange, false, nil); err != nil {
		return fmt.Errorf("eventbus: bind retry queue: %w", err)
	}
	if _, err := p.ch.QueueDeclare(QueueDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("eventbus: declare dlq queue: %w", err)
	}
	if err := p.ch.QueueBind(QueueDLQ, "#", DLQExchange, false, nil); err != nil {
		return fmt.Errorf("eventbus: bind dlq queue: %w", err)
	}
	return nil
}

// Close tears down the channel and connection.
func (p *Publisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

// Publish sends a persistent JSON message to cinema_events with the
// given routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("eventbus: marshal payload: %w", err)
	}
	return p.ch.PublishWithContext(ctx, EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// RouteToRetry republishes a failed delivery to cinema_retry with a
// per-message TTL computed from its current retry count, incrementing
// x-retry-count and recording the failure. Once retryCfg.MaxRetries is
// exceeded the caller should instead call RouteToDLQ.
func (p *Publisher) RouteToRetry(ctx context.Context, d amqp.Delivery, lastErr error, retryCfg RetryConfig) error {
	headers := cloneHeaders(d.Headers)
	retryCount := headerInt(headers, HeaderRetryCount) + 1
	headers[HeaderRetryCount] = retryCount
	headers[HeaderOriginalExchange] = d.Exchange
	headers[HeaderOriginalRouting] = d.RoutingKey
	headers[HeaderLastError] = lastErr.Error()

	delay := retryCfg.NextDelay(retryCount - 1)
	return p.ch.PublishWithContext(ctx, RetryExchange, d.RoutingKey, false, false, amqp.Publishing{
		Headers:         headers,
		ContentType:     d.ContentType,
		ContentEncoding: d.ContentEncoding,
		CorrelationId:   d.CorrelationId,
		MessageId:       d.MessageId,
		Timestamp:       d.Timestamp,
		Type:            d.Type,
		AppId:           d.AppId,
		DeliveryMode:    amqp.Persistent,
		Expiration:      fmt.Sprintf("%d", delay.Milliseconds()),
		Body:            d.Body,
	})
}

// RouteToDLQ diverts a delivery that has exhausted its retry budget to
// cinema_dlq, preserving the same properties as RouteToRetry.
func (p *Publisher) RouteToDLQ(ctx context.Context, d amqp.Delivery, lastErr error) error {
	headers := cloneHeaders(d.Headers)
	headers[HeaderOriginalExchange] = d.Exchange
	headers[HeaderOriginalRouting] = d.RoutingKey
	headers[HeaderLastError] = lastErr.Error()

	return p.ch.PublishWithContext(ctx, DLQExchange, d.RoutingKey, false, false, amqp.Publishing{
		Headers:         headers,
		ContentType:     d.ContentType,
		ContentEncoding: d.ContentEncoding,
		CorrelationId:   d.CorrelationId,
		MessageId:       d.MessageId,
		Timestamp:       d.Timestamp,
		Type:            d.Type,
		AppId:           d.AppId,
		DeliveryMode:    amqp.Persistent,
		Body:            d.Body,
	})
}

func cloneHeaders(h amqp.Table) amqp.Table {
	out := amqp.Table{}
	for k, v := range h {
		out[k] = v
	}
	return out
}

func headerInt(h amqp.Table, key string) int {
	v, ok := h[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	}
	return 0
}
