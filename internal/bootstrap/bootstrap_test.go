package bootstrap

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

	"github.com/cuongbtq/jq/internal/config"
	"github.com/cuongbtq/jq/shared/broker"
	"github.com/cuongbtq/jq/shared/redis"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitBroker_Memory(t *testing.T) {
	cfg := &config.Config{Broker: config.BrokerConfig{Driver: config.DriverMemory}}

	b, closeFn, err := InitBroker(cfg, discardLogger())
	require.NoError(t, err)
	defer closeFn()

	_, ok := b.(*broker.Memory)
	assert.True(t, ok)
}

func TestInitBroker_Redis(t *testing.T) {
	m := miniredis.RunT(t)
	port, err := strconv.Atoi(m.Port())
	require.NoError(t, err)

	cfg := &config.Config{
		Broker: config.BrokerConfig{Driver: config.DriverRedis},
		Redis: config.RedisConfig{
			Host:          m.Host(),
			Port:          port,
			RetryAttempts: 1,
			PollInterval:  time.Second,
		},
	}

	b, closeFn, err := InitBroker(cfg, discardLogger())
	require.NoError(t, err)
	defer closeFn()

	_, ok := b.(*redis.Client)
	require.True(t, ok)

	require.NoError(t, b.Push(context.Background(), "jq:jobRegister", []byte("x")))
	list, err := m.List("jq:jobRegister")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, list)
}

func TestInitBroker_Errors(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := InitBroker(&config.Config{Broker: config.BrokerConfig{Driver: "kafka"}}, discardLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown broker driver")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := &config.Config{
			Broker: config.BrokerConfig{Driver: config.DriverRedis},
			Redis: config.RedisConfig{
				Host:          "127.0.0.1",
				Port:          1,
				RetryAttempts: 1,
				DialTimeout:   100 * time.Millisecond,
			},
		}
		_, _, err := InitBroker(cfg, discardLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize Redis")
	})
}

func TestInitLogger(t *testing.T) {
	l, err := InitLogger(&config.LoggingConfig{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	defer l.Close()

	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Enabled(context.Background(), slog.LevelWarn))
}

func TestStopWithin(t *testing.T) {
	assert.True(t, StopWithin(func() {}, time.Second))
	assert.False(t, StopWithin(func() { time.Sleep(200 * time.Millisecond) }, 10*time.Millisecond))
}
