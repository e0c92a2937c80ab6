// Package realtime fans notification events out to connected clients.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Broker delivers opaque payloads to every live subscriber of a user.
type Broker interface {
	Publish(ctx context.Context, userID uint, payload []byte) error
	// Subscribe blocks until the subscription is live. The returned channel
	// closes when ctx ends or cancel is called.
	Subscribe(ctx context.Context, userID uint) (<-chan []byte, func(), error)
}

// Channel is the pub/sub channel name for a user.
func Channel(userID uint) string {
	return fmt.Sprintf("user_notifications:%d", userID)
}

type redisBroker struct {
	client *redis.Client
}

// NewRedisBroker shares events across every API instance through Redis pub/sub.
func NewRedisBroker(client *redis.Client) Broker {
	return &redisBroker{client: client}
}

func (b *redisBroker) Publish(ctx context.Context, userID uint, payload []byte) error {
	return b.client.Publish(ctx, Channel(userID), payload).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, userID uint) (<-chan []byte, func(), error) {
	pubsub := b.client.Subscribe(ctx, Channel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", Channel(userID), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

type memoryBroker struct {
	mu   sync.Mutex
	subs map[uint]map[chan []byte]struct{}
}

// NewMemoryBroker is an in-process Broker for single-instance deployments
// and tests. Slow subscribers drop events instead of blocking publishers.
func NewMemoryBroker() Broker {
	return &memoryBroker{subs: make(map[uint]map[chan []byte]struct{})}
}

func (b *memoryBroker) Publish(_ context.Context, userID uint, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[userID] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *memoryBroker) Subscribe(ctx context.Context, userID uint) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan []byte]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}
