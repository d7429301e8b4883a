package eventbus

import (
	"context"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc processes one delivery's body. An error routes the
// message to retry/DLQ instead of being visible to the synchronous API
// client.
type HandlerFunc func(ctx context.Context, body []byte) error

// Subscribe connects to uri, declares the topology, and consumes queue
// with handler, reconnecting with backoff on connection failure. It
// blocks until ctx is cancelled.
func Subscribe(ctx context.Context, uri, queue string, retryCfg RetryConfig, handler HandlerFunc) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pub, err := Dial(uri)
		if err != nil {
			log.Printf("eventbus: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(ctx, pub, queue, retryCfg, handler); err != nil {
			log.Printf("eventbus: consume loop for %s ended: %v; reconnecting", queue, err)
			_ = pub.Close()
			time.Sleep(2 * time.Second)
			continue
		}
		_ = pub.Close()
	}
}

func consumeLoop(ctx context.Context, pub *Publisher, queue string, retryCfg RetryConfig, handler HandlerFunc) error {
	if err := pub.ch.Qos(50, 0, false); err != nil {
		log.Printf("eventbus: set QoS failed: %v", err)
	}
	msgs, err := pub.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errConsumeClosed
			}
			handleDelivery(ctx, pub, d, retryCfg, handler)
		}
	}
}

var errConsumeClosed = &closedError{}

type closedError struct{}

func (*closedError) Error() string { return "eventbus: deliveries channel closed" }

func handleDelivery(ctx context.Context, pub *Publisher, d amqp.Delivery, retryCfg RetryConfig, handler HandlerFunc) {
	if err := handler(ctx, d.Body); err != nil {
		retryCount := headerInt(d.Headers, HeaderRetryCount)
		if retryCount >= retryCfg.MaxRetries {
			if dlqErr := pub.RouteToDLQ(ctx, d, err); dlqErr != nil {
				log.Printf("eventbus: route to dlq failed: %v", dlqErr)
			}
		} else if retryErr := pub.RouteToRetry(ctx, d, err, retryCfg); retryErr != nil {
			log.Printf("eventbus: route to retry failed: %v", retryErr)
		}
		_ = d.Ack(false)
		return
	}
	_ = d.Ack(false)
}
