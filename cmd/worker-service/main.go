package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/jq/internal/bootstrap"
	"github.com/cuongbtq/jq/internal/config"
	"github.com/cuongbtq/jq/internal/handler"
	"github.com/cuongbtq/jq/internal/transport"
	"github.com/cuongbtq/jq/internal/worker"
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

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	b, closeBroker, err := bootstrap.InitBroker(cfg, appLogger.WithComponent("broker").Logger)
	if err != nil {
		return err
	}
	defer closeBroker()

	registry := handler.NewRegistry(appLogger.WithComponent("registry").Logger)
	registerHandlers(registry)

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:       appLogger.WithComponent("worker").Logger,
		Transport:    transport.New(b, appLogger.WithComponent("transport").Logger),
		Registry:     registry,
		Name:         cfg.Worker.Name,
		Processes:    cfg.Worker.Processes,
		PopTimeout:   cfg.Worker.PopTimeout,
		PingInterval: cfg.Worker.PingInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerInstance.Identity().ID),
		slog.Any("handlers", registry.Names()),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error", slog.Any("error", err))
		return err
	}

	cancel()

	if bootstrap.StopWithin(workerInstance.Stop, cfg.Worker.ShutdownTimeout) {
		appLogger.Info("Worker stopped gracefully")
	} else {
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}
