// Package events delivers classification events to their consumers.
package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// Sink receives events in the order they were produced.
type Sink interface {
	Emit(ctx context.Context, ev gesture.Event) error
}

// Func adapts a function to a Sink.
type Func func(ctx context.Context, ev gesture.Event) error

// Emit calls f.
func (f Func) Emit(ctx context.Context, ev gesture.Event) error {
	return f(ctx, ev)
}

// Multi fans an event out to every sink. All sinks are called even when some fail.
type Multi []Sink

// Emit delivers ev to each sink and joins their errors.
func (m Multi) Emit(ctx context.Context, ev gesture.Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Writer prints each event's text on its own line.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Emit writes ev.Text followed by a newline and flushes.
func (w *Writer) Emit(_ context.Context, ev gesture.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.WriteString(ev.Text + "\n"); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return w.w.Flush()
}

// Publisher is the subset of a Redis client used for publishing.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes events as JSON on a Redis channel.
type RedisPublisher struct {
	client  Publisher
	channel string
}

// NewRedisPublisher creates a sink publishing to channel.
func NewRedisPublisher(client Publisher, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Emit publishes ev.
func (p *RedisPublisher) Emit(ctx context.Context, ev gesture.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}
