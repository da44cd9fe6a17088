package broker

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process broker.
// Queues are created on first use.
type Memory struct {
	mu          sync.Mutex
	queues      map[string][][]byte
	wake        map[string]chan struct{}
	subscribers map[string]map[chan []byte]struct{}
}

// NewMemory creates an empty in-process broker
func NewMemory() *Memory {
	return &Memory{
		queues:      make(map[string][][]byte),
		wake:        make(map[string]chan struct{}),
		subscribers: make(map[string]map[chan []byte]struct{}),
	}
}

// Push implements Broker
func (m *Memory) Push(ctx context.Context, queue string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item := make([]byte, len(payload))
	copy(item, payload)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.queues[queue] = append(m.queues[queue], item)
	if ch, ok := m.wake[queue]; ok {
		close(ch)
		delete(m.wake, queue)
	}
	return nil
}

// BlockingPop implements Broker
func (m *Memory) BlockingPop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		m.mu.Lock()
		if items := m.queues[queue]; len(items) > 0 {
			head := items[0]
			items[0] = nil
			m.queues[queue] = items[1:]
			m.mu.Unlock()
			return head, nil
		}

		ch, ok := m.wake[queue]
		if !ok {
			ch = make(chan struct{})
			m.wake[queue] = ch
		}
		m.mu.Unlock()

		select {
		case <-ch:
		case <-deadline:
			return nil, ErrEmpty
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of items waiting in queue
func (m *Memory) Len(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[queue])
}

// Publish implements Publisher. Slow subscribers miss messages.
func (m *Memory) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for sub := range m.subscribers[channel] {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		select {
		case sub <- msg:
		default:
		}
	}
	return nil
}

// Subscribe implements Subscriber
func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := make(chan []byte, 64)

	m.mu.Lock()
	if m.subscribers[channel] == nil {
		m.subscribers[channel] = make(map[chan []byte]struct{})
	}
	m.subscribers[channel][sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subscribers[channel], sub)
		close(sub)
		m.mu.Unlock()
	}()

	return sub, nil
}
