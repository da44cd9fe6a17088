// Package broker defines the ordered-queue contract the transport runs on.
package broker

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned by BlockingPop when the timeout elapses with no item
var ErrEmpty = errors.New("queue is empty")

// Broker is a set of named FIFO queues
type Broker interface {
	// Push appends payload to the tail of queue and returns without waiting for a consumer
	Push(ctx context.Context, queue string, payload []byte) error
	// BlockingPop removes the head of queue, waiting up to timeout for one to arrive.
	// A zero timeout waits until ctx is done.
	BlockingPop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

// Publisher is implemented by brokers that carry fire-and-forget broadcasts
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber is implemented by brokers that can deliver broadcasts.
// The returned channel is closed once ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
