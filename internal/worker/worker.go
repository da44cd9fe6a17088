// Package worker runs the worker side of the protocol: it announces the
// worker, then runs a pool of pollers that pop jobs, dispatch them through a
// sealed handler registry and report the results.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/jq/internal/handler"
	"github.com/cuongbtq/jq/internal/idgen"
	"github.com/cuongbtq/jq/internal/model"
	"github.com/cuongbtq/jq/internal/transport"
)

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	Transport    *transport.Transport
	Registry     *handler.Registry
	WorkerID     string
	Name         string
	Processes    int
	PopTimeout   time.Duration
	PingInterval time.Duration
}

// Worker represents one worker instance with Processes pollers
type Worker struct {
	logger       *slog.Logger
	transport    *transport.Transport
	registry     *handler.Registry
	identity     model.Worker
	popTimeout   time.Duration
	pingInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new worker instance. An empty WorkerID gets a generated one.
func NewWorker(cfg *Config) *Worker {
	id := cfg.WorkerID
	if id == "" {
		id = idgen.New()
	}

	processes := cfg.Processes
	if processes <= 0 {
		processes = 1
	}

	return &Worker{
		logger:       cfg.Logger.With(slog.String("worker_id", id)),
		transport:    cfg.Transport,
		registry:     cfg.Registry,
		identity:     model.NewWorker(id, cfg.Name, processes),
		popTimeout:   cfg.PopTimeout,
		pingInterval: cfg.PingInterval,
		stopChan:     make(chan struct{}),
	}
}

// Identity returns the record announced on the worker-register queue
func (w *Worker) Identity() model.Worker {
	return w.identity
}

// Start seals the registry, announces the worker and runs the pollers.
// It returns once ctx is done or Stop is called; in-flight jobs keep running until Stop returns.
func (w *Worker) Start(ctx context.Context) error {
	w.registry.Seal()

	w.logger.Info("Starting worker",
		slog.String("name", w.identity.Name),
		slog.Int("processes", w.identity.Processes),
		slog.Any("handlers", w.registry.Names()),
	)

	if err := w.transport.RegisterWorker(ctx, w.identity); err != nil {
		return err
	}

	// pops are interrupted by Stop; dispatch and report are not
	popCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-popCtx.Done():
		}
	}()

	w.spawnPollers(popCtx)

	if w.pingInterval > 0 {
		w.wg.Add(1)
		go w.heartbeatLoop(popCtx)
	}

	<-popCtx.Done()
	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
