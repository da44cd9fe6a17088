package redis

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/jq/shared/broker"
)

func newTestConfig(t *testing.T, m *miniredis.Miniredis) *Config {
	t.Helper()
	port, err := strconv.Atoi(m.Port())
	require.NoError(t, err)
	return &Config{
		Host:          m.Host(),
		Port:          port,
		RetryAttempts: 1,
		PollInterval:  time.Second,
	}
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)

	c, err := NewClient(newTestConfig(t, m), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, m
}

func TestClient_ImplementsBroker(t *testing.T) {
	var _ broker.Broker = (*Client)(nil)
	var _ broker.Publisher = (*Client)(nil)
	var _ broker.Subscriber = (*Client)(nil)
}

func TestClient_PushPop(t *testing.T) {
	ctx := context.Background()
	c, m := newTestClient(t)

	require.NoError(t, c.Push(ctx, "jq:globalQueue", []byte{0x81, 0xa1, 'a', 0x01}))
	require.NoError(t, c.Push(ctx, "jq:globalQueue", []byte("second")))

	n, err := c.Len(ctx, "jq:globalQueue")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := m.List("jq:globalQueue")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := c.BlockingPop(ctx, "jq:globalQueue", time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 0xa1, 'a', 0x01}, got)

	got, err = c.BlockingPop(ctx, "jq:globalQueue", 0)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestClient_BlockingPopTimeout(t *testing.T) {
	c, _ := newTestClient(t)

	start := time.Now()
	_, err := c.BlockingPop(context.Background(), "empty", 100*time.Millisecond)
	assert.ErrorIs(t, err, broker.ErrEmpty)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_BlockingPopCancelled(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.BlockingPop(ctx, "empty", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_BlockingPopWaitsForPush(t *testing.T) {
	ctx := context.Background()
	c, m := newTestClient(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		m.RPush("late", "value")
	}()

	got, err := c.BlockingPop(ctx, "late", 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "value", string(got))
}

func TestClient_PublishSubscribe(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := c.Subscribe(ctx, "jq:ping")
	require.NoError(t, err)

	require.NoError(t, c.Publish(context.Background(), "jq:ping", []byte("w1")))

	select {
	case msg := <-msgs:
		assert.Equal(t, "w1", string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestNewClient_ConnectionFailure(t *testing.T) {
	m := miniredis.RunT(t)
	cfg := newTestConfig(t, m)
	m.Close()

	_, err := NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis after 1 attempts")
}
