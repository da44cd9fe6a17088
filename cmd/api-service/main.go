package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/jq/internal/api/handler"
	"github.com/cuongbtq/jq/internal/api/router"
	"github.com/cuongbtq/jq/internal/bootstrap"
	"github.com/cuongbtq/jq/internal/config"
	"github.com/cuongbtq/jq/internal/model"
	"github.com/cuongbtq/jq/internal/producer"
	"github.com/cuongbtq/jq/internal/resultsink"
	"github.com/cuongbtq/jq/internal/transport"
	"github.com/cuongbtq/jq/shared/postgresql"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	b, closeBroker, err := bootstrap.InitBroker(cfg, appLogger.WithComponent("broker").Logger)
	if err != nil {
		return err
	}
	defer closeBroker()

	appLogger.Info("Broker connection established", slog.String("driver", cfg.Broker.Driver))

	// The result archive is optional for the API
	var dbClient *postgresql.Client
	var results handler.ResultReader
	if cfg.Database.Host != "" {
		dbClient, err = bootstrap.InitPostgreSQL(&cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()
		results = resultsink.NewStorage(dbClient.GetDB(), appLogger.Logger)
		appLogger.Info("Database connection established")
	}

	pusher := producer.NewPusher(
		transport.New(b, appLogger.WithComponent("transport").Logger),
		model.Defaults{
			Timeout:  cfg.Producer.DefaultTimeout,
			MaxRetry: cfg.Producer.DefaultMaxRetry,
		},
		appLogger.WithComponent("producer").Logger,
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger:  appLogger.WithComponent("http").Logger,
		Pusher:  pusher,
		Results: results,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running", slog.String("address", addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully", slog.String("signal", sig.String()))
	case err := <-serverErr:
		appLogger.Error("Server failed", slog.Any("error", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}
