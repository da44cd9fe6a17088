package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cuongbtq/jq/shared/broker"
)

// minBlockTimeout is the smallest BLPOP timeout the server accepts
const minBlockTimeout = time.Second

// Config holds Redis connection configuration
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	DB            int
	PoolSize      int
	DialTimeout   time.Duration
	RetryAttempts int
	RetryInterval time.Duration
	// PollInterval bounds each BLPOP so an unbounded pop still notices cancellation
	PollInterval time.Duration
}

// Client is a broker backed by Redis lists.
// Queues are lists fed with RPUSH and drained with BLPOP; broadcasts use pub/sub.
type Client struct {
	config *Config
	rdb    *goredis.Client
	logger *slog.Logger
}

// NewClient creates a new Redis client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	return client, nil
}

// connect establishes connection to Redis with retry logic
func (c *Client) connect() error {
	c.rdb = goredis.NewClient(&goredis.Options{
		Addr:        fmt.Sprintf("%s:%d", c.config.Host, c.config.Port),
		Username:    c.config.Username,
		Password:    c.config.Password,
		DB:          c.config.DB,
		PoolSize:    c.config.PoolSize,
		DialTimeout: c.config.DialTimeout,
	})

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to Redis",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		err = c.rdb.Ping(context.Background()).Err()
		if err == nil {
			break
		}

		c.logger.Error("Failed to connect to Redis",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		c.rdb.Close()
		return fmt.Errorf("failed to connect to Redis after %d attempts: %w", attempts, err)
	}

	c.logger.Info("Successfully connected to Redis",
		slog.String("host", c.config.Host),
		slog.Int("port", c.config.Port),
		slog.Int("db", c.config.DB),
	)
	return nil
}

// Push implements broker.Broker
func (c *Client) Push(ctx context.Context, queue string, payload []byte) error {
	if err := c.rdb.RPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", queue, err)
	}
	return nil
}

// BlockingPop implements broker.Broker.
// Timeouts are rounded up to whole seconds.
func (c *Client) BlockingPop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wait := c.pollInterval()
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, broker.ErrEmpty
			}
			if remaining < wait {
				wait = remaining
			}
		}
		if wait < minBlockTimeout {
			wait = minBlockTimeout
		}

		res, err := c.rdb.BLPop(ctx, wait, queue).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to pop from %s: %w", queue, err)
		}
		if len(res) < 2 {
			return nil, fmt.Errorf("unexpected BLPOP response: %v", res)
		}
		return []byte(res[1]), nil
	}
}

// Len returns the number of items waiting in queue
func (c *Client) Len(ctx context.Context, queue string) (int64, error) {
	return c.rdb.LLen(ctx, queue).Result()
}

// Publish implements broker.Publisher
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe implements broker.Subscriber
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := c.rdb.Subscribe(ctx, channel)

	// wait for the subscription to be confirmed so no message published after return is lost
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Close(); err != nil {
				c.logger.Error("Failed to close Redis subscription", slog.Any("error", err))
			}
		}()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes the Redis connection pool
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.rdb.Close()
}

func (c *Client) pollInterval() time.Duration {
	if c.config.PollInterval > 0 {
		return c.config.PollInterval
	}
	return 5 * time.Second
}
