package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_FIFO(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, b.Push(ctx, "q", []byte(p)))
	}
	assert.Equal(t, 3, b.Len("q"))

	for _, want := range []string{"a", "b", "c"} {
		got, err := b.BlockingPop(ctx, "q", time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
	assert.Equal(t, 0, b.Len("q"))
}

func TestMemory_QueuesAreIndependent(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()

	require.NoError(t, b.Push(ctx, "one", []byte("1")))

	_, err := b.BlockingPop(ctx, "two", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)

	got, err := b.BlockingPop(ctx, "one", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
}

func TestMemory_PushCopiesPayload(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()

	payload := []byte("abc")
	require.NoError(t, b.Push(ctx, "q", payload))
	payload[0] = 'z'

	got, err := b.BlockingPop(ctx, "q", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemory_BlockingPopWaitsForPush(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()

	done := make(chan []byte)
	go func() {
		got, err := b.BlockingPop(ctx, "q", 0)
		if err == nil {
			done <- got
		}
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Push(ctx, "q", []byte("late")))

	select {
	case got := <-done:
		assert.Equal(t, "late", string(got))
	case <-time.After(time.Second):
		t.Fatal("pop did not observe push")
	}
}

func TestMemory_BlockingPopHonoursContext(t *testing.T) {
	b := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := b.BlockingPop(ctx, "q", 0)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("pop ignored cancellation")
	}
}

func TestMemory_ConcurrentConsumersSeeEachItemOnce(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()

	const items = 100
	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				got, err := b.BlockingPop(ctx, "q", 100*time.Millisecond)
				if err != nil {
					return
				}
				mu.Lock()
				seen[string(got)]++
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < items; i++ {
		require.NoError(t, b.Push(ctx, "q", []byte{byte(i)}))
	}
	wg.Wait()

	assert.Len(t, seen, items)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
}

func TestMemory_PublishSubscribe(t *testing.T) {
	b := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, "ping")
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), "ping", []byte("w1")))
	require.NoError(t, b.Publish(context.Background(), "other", []byte("w2")))

	select {
	case msg := <-sub:
		assert.Equal(t, "w1", string(msg))
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	cancel()
	for range sub {
	}
}
