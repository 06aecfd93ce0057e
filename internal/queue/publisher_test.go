package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu        sync.Mutex
	published chan amqp.Publishing
	keys      []string
	failNext  bool
	closed    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{published: make(chan amqp.Publishing, 16)}
}

func (f *fakeSession) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("channel closed")
	}
	f.keys = append(f.keys, key)
	f.published <- msg
	return nil
}

func (f *fakeSession) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestPublisherEnqueueDropsWhenFull(t *testing.T) {
	p := NewPublisher("amqp://unused", "request.served", 1)

	assert.True(t, p.Enqueue(RequestServedEvent{Method: "GET", URI: "/a"}))
	assert.False(t, p.Enqueue(RequestServedEvent{Method: "GET", URI: "/b"}))
	assert.Equal(t, uint64(1), p.Dropped())
}

func TestPublisherRunPublishes(t *testing.T) {
	sess := newFakeSession()
	p := NewPublisher("amqp://unused", "request.served", 4)
	p.dial = func() (session, error) { return sess, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	ev := RequestServedEvent{RequestID: "abc", Method: "GET", Route: "/api/v1/hello", URI: "/api/v1/hello", Status: 200}
	require.True(t, p.Enqueue(ev))

	select {
	case msg := <-sess.published:
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
		assert.Equal(t, "abc", msg.MessageId)
		var got RequestServedEvent
		require.NoError(t, json.Unmarshal(msg.Body, &got))
		assert.Equal(t, ev, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
	assert.NoError(t, p.Ping(context.Background()))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, sess.IsClosed())
	assert.Equal(t, []string{"request.served"}, sess.keys)
}

func TestPublisherResetsSessionOnFailure(t *testing.T) {
	first := newFakeSession()
	first.failNext = true
	second := newFakeSession()
	sessions := []*fakeSession{first, second}
	p := NewPublisher("amqp://unused", "request.served", 4)
	p.dial = func() (session, error) {
		s := sessions[0]
		sessions = sessions[1:]
		return s, nil
	}

	ctx := context.Background()
	err := p.publish(ctx, RequestServedEvent{Method: "GET", URI: "/"})
	require.Error(t, err)
	assert.True(t, first.IsClosed())
	assert.ErrorIs(t, p.Ping(ctx), errNotConnected)

	require.NoError(t, p.publish(ctx, RequestServedEvent{Method: "GET", URI: "/"}))
	assert.Len(t, second.published, 1)
}

func TestPublisherBacksOffAfterDialFailure(t *testing.T) {
	calls := 0
	p := NewPublisher("amqp://unused", "request.served", 1)
	p.dial = func() (session, error) {
		calls++
		return nil, errors.New("connection refused")
	}

	err := p.publish(context.Background(), RequestServedEvent{Method: "GET", URI: "/"})
	assert.EqualError(t, err, "connection refused")

	err = p.publish(context.Background(), RequestServedEvent{Method: "GET", URI: "/"})
	assert.ErrorIs(t, err, errNotConnected)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2*time.Second, p.backoff)
}

func TestPublisherRunCountsFailures(t *testing.T) {
	p := NewPublisher("amqp://unused", "request.served", 4)
	p.dial = func() (session, error) { return nil, errors.New("connection refused") }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.True(t, p.Enqueue(RequestServedEvent{Method: "GET", URI: "/"}))
	require.Eventually(t, func() bool { return p.Failed() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(0), p.Dropped())

	cancel()
	<-done
}
