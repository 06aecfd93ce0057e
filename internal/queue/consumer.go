package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/jenkins-cicd-demo/internal/model"
)

// errStore marks a message that was valid but could not be stored.  Such
// messages are requeued; anything else is a poison message and is dropped.
var errStore = errors.New("store")

// Sink stores served requests taken off the queue.
type Sink interface {
	Store(ctx context.Context, r model.ServedRequest) error
}

// StartRequestConsumer connects to RabbitMQ, declares the queue (durable) and
// stores every message through sink.  It reconnects with backoff when the
// broker goes away and returns only once ctx is cancelled.  A message that
// cannot be decoded is rejected without requeue so it cannot spin the loop;
// one the sink failed to store goes back on the queue after a short pause.
func StartRequestConsumer(ctx context.Context, url, queue string, sink Sink) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("request-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, sink)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("request-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink Sink) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("request-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(ctx, d.Body, sink); err != nil {
				retry := requeue(err)
				log.Printf("request-consumer: handle message failed (requeue=%t): %v", retry, err)
				if retry && !sleep(ctx, time.Second) {
					_ = d.Nack(false, true)
					return ctx.Err()
				}
				_ = d.Nack(false, retry)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(ctx context.Context, body []byte, sink Sink) error {
	var ev RequestServedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Method == "" || ev.URI == "" {
		return errors.New("event missing method or uri")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sink.Store(ctx, ev.ServedRequest(time.Now())); err != nil {
		return fmt.Errorf("%w: %w", errStore, err)
	}
	return nil
}

// requeue reports whether a failed message should be delivered again.
func requeue(err error) bool { return errors.Is(err, errStore) }

// sleep waits for d or until ctx is done; it reports false in the latter case.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
