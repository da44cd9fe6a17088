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
	"github.com/cuongbtq/jq/internal/resultsink"
	"github.com/cuongbtq/jq/internal/transport"
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

	defaultConfigPath := os.Getenv("RESULT_SINK_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/result-sink/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateResultSinkConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting result sink",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := bootstrap.InitPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	store := resultsink.NewStorage(dbClient.GetDB(), appLogger.WithComponent("storage").Logger)
	if err := store.EnsureSchema(context.Background()); err != nil {
		return err
	}

	appLogger.Info("Database connection established")

	b, closeBroker, err := bootstrap.InitBroker(cfg, appLogger.WithComponent("broker").Logger)
	if err != nil {
		return err
	}
	defer closeBroker()

	sink := resultsink.New(&resultsink.Config{
		Logger:     appLogger.WithComponent("sink").Logger,
		Source:     transport.New(b, appLogger.WithComponent("transport").Logger),
		Store:      store,
		PopTimeout: cfg.ResultSink.PopTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := sink.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Result sink error", slog.Any("error", err))
		return err
	}

	cancel()

	if bootstrap.StopWithin(sink.Stop, cfg.ResultSink.ShutdownTimeout) {
		appLogger.Info("Result sink stopped gracefully")
	} else {
		appLogger.Warn("Result sink shutdown timeout exceeded, forcing exit")
	}
	return nil
}
