package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var errNotConnected = errors.New("rabbitmq: not connected")

// session is the part of an AMQP connection+channel the publisher uses.
type session interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (s *amqpSession) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return s.ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (s *amqpSession) IsClosed() bool { return s.conn.IsClosed() || s.ch.IsClosed() }

func (s *amqpSession) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}

// dialSession opens a connection and a channel and declares the durable
// queue (idempotent) so messages survive broker restarts.
func dialSession(url, queue string) (session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	return &amqpSession{conn: conn, ch: ch}, nil
}

// Publisher sends RequestServedEvents to a queue from a single goroutine.
// Enqueue never blocks the request path: when the buffer is full the event
// is dropped and counted.
type Publisher struct {
	queue  string
	events chan RequestServedEvent
	dial   func() (session, error)

	mu       sync.Mutex
	sess     session
	nextDial time.Time
	backoff  time.Duration

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewPublisher(url, queue string, buffer int) *Publisher {
	p := &Publisher{
		queue:   queue,
		events:  make(chan RequestServedEvent, buffer),
		backoff: time.Second,
	}
	p.dial = func() (session, error) { return dialSession(url, queue) }
	return p
}

// Enqueue hands ev to the publishing goroutine.  It reports false when the
// event was dropped.
func (p *Publisher) Enqueue(ev RequestServedEvent) bool {
	select {
	case p.events <- ev:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Dropped is the number of events lost to a full buffer.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Failed is the number of events that could not be published.
func (p *Publisher) Failed() uint64 { return p.failed.Load() }

// Run publishes queued events until ctx is cancelled.  Publish failures are
// logged and the event is discarded; the session is redialled with
// exponential backoff.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.Close()
	if _, err := p.session(); err != nil {
		log.Printf("request-publisher: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			if err := p.publish(ctx, ev); err != nil {
				p.failed.Add(1)
				log.Printf("request-publisher: publish %s %s failed: %v", ev.Method, ev.URI, err)
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev RequestServedEvent) error {
	sess, err := p.session()
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.RequestID,
		Body:         body,
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	// default exchange, routing key = queue name
	if err := sess.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.reset(sess)
		return err
	}
	return nil
}

// session returns the live session, dialling when allowed by the backoff.
func (p *Publisher) session() (session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess != nil && !p.sess.IsClosed() {
		return p.sess, nil
	}
	if now := time.Now(); now.Before(p.nextDial) {
		return nil, errNotConnected
	}
	sess, err := p.dial()
	if err != nil {
		p.nextDial = time.Now().Add(p.backoff)
		if p.backoff < 30*time.Second {
			p.backoff *= 2
		}
		return nil, err
	}
	p.sess = sess
	p.backoff = time.Second
	p.nextDial = time.Time{}
	return sess, nil
}

func (p *Publisher) reset(sess session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == sess {
		_ = p.sess.Close()
		p.sess = nil
	}
}

// Ping reports whether the publisher holds an open broker session.  It is
// used as a readiness check.
func (p *Publisher) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil || p.sess.IsClosed() {
		return errNotConnected
	}
	return ctx.Err()
}

// Close drops the current session.  Queued events that were not yet
// published are discarded.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return nil
	}
	err := p.sess.Close()
	p.sess = nil
	return err
}
