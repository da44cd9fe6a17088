// Package bootstrap turns configuration sections into live clients for the service binaries.
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/jq/internal/config"
	"github.com/cuongbtq/jq/internal/transport"
	"github.com/cuongbtq/jq/shared/broker"
	"github.com/cuongbtq/jq/shared/logger"
	"github.com/cuongbtq/jq/shared/postgresql"
	"github.com/cuongbtq/jq/shared/rabbitmq"
	"github.com/cuongbtq/jq/shared/redis"
)

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableSource,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	})
}

// InitBroker connects the broker selected by broker.driver.
// The returned close function releases the connection.
func InitBroker(cfg *config.Config, logger *slog.Logger) (broker.Broker, func() error, error) {
	switch cfg.Broker.Driver {
	case config.DriverRedis:
		client, err := redis.NewClient(&redis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Username:      cfg.Redis.Username,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			DialTimeout:   cfg.Redis.DialTimeout,
			RetryAttempts: cfg.Redis.RetryAttempts,
			RetryInterval: cfg.Redis.RetryInterval,
			PollInterval:  cfg.Redis.PollInterval,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		return client, client.Close, nil

	case config.DriverRabbitMQ:
		client, err := rabbitmq.NewClient(&rabbitmq.Config{
			Host:               cfg.RabbitMQ.Host,
			Port:               cfg.RabbitMQ.Port,
			User:               cfg.RabbitMQ.User,
			Password:           cfg.RabbitMQ.Password,
			VHost:              cfg.RabbitMQ.VHost,
			Queues:             transport.Queues(),
			QueueDurable:       cfg.RabbitMQ.Durable,
			PrefetchCount:      cfg.RabbitMQ.PrefetchCount,
			RetryAttempts:      cfg.RabbitMQ.Connection.RetryAttempts,
			RetryInterval:      cfg.RabbitMQ.Connection.RetryInterval,
			Heartbeat:          cfg.RabbitMQ.Connection.Heartbeat,
			PublishRetries:     cfg.RabbitMQ.Publish.RetryAttempts,
			PublishRetryDelay:  cfg.RabbitMQ.Publish.RetryInterval,
			PublishBackoffMult: cfg.RabbitMQ.Publish.BackoffMultiplier,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		return client, client.Close, nil

	case config.DriverMemory:
		logger.Warn("Using in-process memory broker, queues are not shared between processes")
		return broker.NewMemory(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown broker driver: %q", cfg.Broker.Driver)
	}
}

// InitPostgreSQL initializes the PostgreSQL database client
func InitPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// StopWithin runs stop and reports whether it returned before timeout elapsed
func StopWithin(stop func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
