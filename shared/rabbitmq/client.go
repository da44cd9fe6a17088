package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/jq/shared/broker"
)

const contentType = "application/msgpack"

// Config holds RabbitMQ connection configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	Queues             []string
	QueueDurable       bool
	PrefetchCount      int
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// Client is a broker backed by RabbitMQ queues on the default exchange.
// Broadcast channels are fanout exchanges.
type Client struct {
	config    *Config
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *slog.Logger
	closeChan chan *amqp.Error

	mu          sync.Mutex
	isConnected bool
	deliveries  map[string]<-chan amqp.Delivery
	exchanges   map[string]bool
}

// NewClient creates a new RabbitMQ client and declares its queues
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config:     config,
		logger:     logger,
		deliveries: make(map[string]<-chan amqp.Delivery),
		exchanges:  make(map[string]bool),
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			c.logger.Info("Successfully connected to RabbitMQ")
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.setup(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to setup queues: %w", err)
	}

	// Monitor connection
	c.closeChan = make(chan *amqp.Error, 1)
	c.channel.NotifyClose(c.closeChan)
	go c.watch()

	c.mu.Lock()
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Info("RabbitMQ client initialized",
		slog.Any("queues", c.config.Queues),
	)

	return nil
}

// setup declares the queues and the consumer prefetch
func (c *Client) setup() error {
	for _, name := range c.config.Queues {
		_, err := c.channel.QueueDeclare(
			name,                  // name
			c.config.QueueDurable, // durable
			false,                 // auto-delete
			false,                 // exclusive
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	prefetch := c.config.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	return nil
}

func (c *Client) watch() {
	err, ok := <-c.closeChan
	if !ok {
		return
	}

	c.mu.Lock()
	c.isConnected = false
	c.mu.Unlock()

	c.logger.Error("RabbitMQ channel closed", slog.Any("error", err))
}

// Push implements broker.Broker
func (c *Client) Push(ctx context.Context, queue string, payload []byte) error {
	return c.publishWithRetry(ctx, "", queue, payload)
}

// BlockingPop implements broker.Broker.
// Each queue gets one consumer on first use; deliveries are acked once handed out.
func (c *Client) BlockingPop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	deliveries, err := c.consume(queue)
	if err != nil {
		return nil, err
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case msg, ok := <-deliveries:
		if !ok {
			return nil, fmt.Errorf("consumer for %s closed", queue)
		}
		if err := msg.Ack(false); err != nil {
			return nil, fmt.Errorf("failed to ack message from %s: %w", queue, err)
		}
		return msg.Body, nil
	case <-deadline:
		return nil, broker.ErrEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) consume(queue string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}
	if d, ok := c.deliveries[queue]; ok {
		return d, nil
	}

	messages, err := c.channel.Consume(
		queue, // queue
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	c.logger.Info("Started consuming messages from RabbitMQ",
		slog.String("queue", queue),
	)

	c.deliveries[queue] = messages
	return messages, nil
}

// Publish implements broker.Publisher
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.declareFanout(channel); err != nil {
		return err
	}
	return c.publishWithRetry(ctx, channel, "", payload)
}

// Subscribe implements broker.Subscriber
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if err := c.declareFanout(channel); err != nil {
		return nil, err
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare subscription queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", channel, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind subscription queue: %w", err)
	}

	messages, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume subscription: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- msg.Body:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *Client) declareFanout(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exchanges[name] {
		return nil
	}

	err := c.channel.ExchangeDeclare(
		name,     // name
		"fanout", // type
		false,    // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", name, err)
	}

	c.exchanges[name] = true
	return nil
}

// publishWithRetry publishes with exponential backoff
func (c *Client) publishWithRetry(ctx context.Context, exchange, routingKey string, body []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	maxRetries := c.config.PublishRetries
	if maxRetries <= 0 {
		maxRetries = 3 // default
	}

	baseDelay := c.config.PublishRetryDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond // default
	}

	backoffMult := c.config.PublishBackoffMult
	if backoffMult <= 0 {
		backoffMult = 2.0 // default
	}

	var lastErr error
	delay := baseDelay
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := c.channel.PublishWithContext(
			ctx,
			exchange,   // exchange
			routingKey, // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:  contentType,
				Body:         body,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
			},
		)

		if err == nil {
			if attempt > 0 {
				c.logger.Info("Successfully published message to RabbitMQ after retry",
					slog.Int("attempt", attempt+1),
					slog.Int("body_size", len(body)),
				)
			}
			return nil
		}

		lastErr = err

		if attempt < maxRetries {
			c.logger.Warn("Failed to publish message to RabbitMQ, retrying...",
				slog.Int("attempt", attempt+1),
				slog.Int("max_retries", maxRetries),
				slog.Duration("retry_after", delay),
				slog.Any("error", err),
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay = time.Duration(float64(delay) * backoffMult)
		}
	}

	c.logger.Error("Failed to publish message to RabbitMQ after all retries",
		slog.Int("attempts", maxRetries+1),
		slog.Any("error", lastErr),
	)
	return fmt.Errorf("failed to publish message after %d attempts: %w", maxRetries+1, lastErr)
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	c.mu.Lock()
	c.isConnected = false
	c.mu.Unlock()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}
