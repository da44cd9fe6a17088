package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Broker drivers
const (
	DriverRedis    = "redis"
	DriverRabbitMQ = "rabbitmq"
	DriverMemory   = "memory"
)

// Config represents the complete application configuration.
// Each service reads the sections it needs and validates them with its own Validate method.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Broker     BrokerConfig     `yaml:"broker"`
	Redis      RedisConfig      `yaml:"redis"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Worker     WorkerConfig     `yaml:"worker"`
	Producer   ProducerConfig   `yaml:"producer"`
	Registrar  RegistrarConfig  `yaml:"registrar"`
	ResultSink ResultSinkConfig `yaml:"result_sink"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableSource bool   `yaml:"enable_source"`
	NoColor      bool   `yaml:"no_color"`
}

// BrokerConfig selects the queue backend
type BrokerConfig struct {
	Driver string `yaml:"driver"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	PoolSize      int           `yaml:"pool_size"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// RabbitMQConfig holds RabbitMQ connection and queue configuration
type RabbitMQConfig struct {
	Host          string           `yaml:"host"`
	Port          int              `yaml:"port"`
	User          string           `yaml:"user"`
	Password      string           `yaml:"password"`
	VHost         string           `yaml:"vhost"`
	Durable       bool             `yaml:"durable"`
	PrefetchCount int              `yaml:"prefetch_count"`
	Connection    ConnectionConfig `yaml:"connection"`
	Publish       PublishConfig    `yaml:"publish"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Name            string        `yaml:"name"`
	Processes       int           `yaml:"processes"`
	PopTimeout      time.Duration `yaml:"pop_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProducerConfig holds the default policy applied to requests that leave timeout or max_retry unset
type ProducerConfig struct {
	DefaultTimeout  time.Duration `yaml:"default_timeout"`
	DefaultMaxRetry int           `yaml:"default_max_retry"`
}

// RegistrarConfig holds admission service configuration
type RegistrarConfig struct {
	PopTimeout      time.Duration `yaml:"pop_timeout"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ResultSinkConfig holds result archive service configuration
type ResultSinkConfig struct {
	PopTimeout      time.Duration `yaml:"pop_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file.
// ${VAR} references are expanded from the environment before parsing.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

func validatePort(name string, port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("invalid %s port: %d (must be between %d and %d)", name, port, MinPort, MaxPort)
	}
	return nil
}

func (c *Config) validateBroker() error {
	switch c.Broker.Driver {
	case DriverRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
		if err := validatePort("redis", c.Redis.Port); err != nil {
			return err
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("redis db must not be negative")
		}
	case DriverRabbitMQ:
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}
		if err := validatePort("rabbitmq", c.RabbitMQ.Port); err != nil {
			return err
		}
	case DriverMemory:
	case "":
		return fmt.Errorf("broker driver is required")
	default:
		return fmt.Errorf("unknown broker driver: %q", c.Broker.Driver)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if err := validatePort("database", c.Database.Port); err != nil {
		return err
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

// ValidateAPIConfig checks the sections used by the producer API
func (c *Config) ValidateAPIConfig() error {
	if err := validatePort("server", c.Server.Port); err != nil {
		return err
	}

	if err := c.validateBroker(); err != nil {
		return err
	}

	if c.Producer.DefaultTimeout < 0 {
		return fmt.Errorf("producer default_timeout must not be negative")
	}

	if c.Producer.DefaultMaxRetry < 0 {
		return fmt.Errorf("producer default_max_retry must not be negative")
	}

	return nil
}

// ValidateWorkerConfig checks the sections used by the worker
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateBroker(); err != nil {
		return err
	}

	if c.Worker.Name == "" {
		return fmt.Errorf("worker name is required")
	}

	if c.Worker.Processes <= 0 {
		return fmt.Errorf("worker processes must be greater than 0")
	}

	if c.Worker.PopTimeout < 0 {
		return fmt.Errorf("worker pop_timeout must not be negative")
	}

	if c.Worker.PingInterval <= 0 {
		return fmt.Errorf("worker ping_interval must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return nil
}

// ValidateRegistrarConfig checks the sections used by the registrar
func (c *Config) ValidateRegistrarConfig() error {
	if err := c.validateBroker(); err != nil {
		return err
	}

	if c.Registrar.PopTimeout < 0 {
		return fmt.Errorf("registrar pop_timeout must not be negative")
	}

	if c.Registrar.PingTimeout < 0 {
		return fmt.Errorf("registrar ping_timeout must not be negative")
	}

	if c.Registrar.ShutdownTimeout <= 0 {
		return fmt.Errorf("registrar shutdown_timeout must be greater than 0")
	}

	return nil
}

// ValidateResultSinkConfig checks the sections used by the result sink
func (c *Config) ValidateResultSinkConfig() error {
	if err := c.validateBroker(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.ResultSink.PopTimeout < 0 {
		return fmt.Errorf("result_sink pop_timeout must not be negative")
	}

	if c.ResultSink.ShutdownTimeout <= 0 {
		return fmt.Errorf("result_sink shutdown_timeout must be greater than 0")
	}

	return nil
}
