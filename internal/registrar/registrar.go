// Package registrar is a reference admission driver: it turns job requests
// into admitted jobs in arrival order and keeps track of the worker fleet.
// It does not reorder by priority and does not schedule retries.
package registrar

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/jq/internal/model"
	"github.com/cuongbtq/jq/internal/transport"
)

// Config holds registrar configuration
type Config struct {
	Logger     *slog.Logger
	Transport  *transport.Transport
	PopTimeout time.Duration
	// PingTimeout drops workers silent for longer than this; zero disables liveness tracking
	PingTimeout time.Duration
}

// Registrar admits requests and tracks workers
type Registrar struct {
	logger      *slog.Logger
	transport   *transport.Transport
	fleet       *Fleet
	popTimeout  time.Duration
	pingTimeout time.Duration
	now         func() time.Time
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// New creates a new registrar
func New(cfg *Config) *Registrar {
	popTimeout := cfg.PopTimeout
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	return &Registrar{
		logger:      cfg.Logger,
		transport:   cfg.Transport,
		fleet:       NewFleet(),
		popTimeout:  popTimeout,
		pingTimeout: cfg.PingTimeout,
		now:         time.Now,
		stopChan:    make(chan struct{}),
	}
}

// Fleet returns the tracked workers
func (r *Registrar) Fleet() *Fleet {
	return r.fleet
}

// Start runs the admission and fleet loops until ctx is done or Stop is called
func (r *Registrar) Start(ctx context.Context) error {
	r.logger.Info("Starting registrar",
		slog.Duration("pop_timeout", r.popTimeout),
		slog.Duration("ping_timeout", r.pingTimeout),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stopChan:
			cancel()
		case <-runCtx.Done():
		}
	}()

	if r.pingTimeout > 0 {
		pings, err := r.transport.Pings(runCtx)
		switch {
		case err == nil:
			r.wg.Add(1)
			go r.livenessLoop(runCtx, pings)
		case errors.Is(err, transport.ErrPingUnsupported):
			r.logger.Warn("Broker does not carry pings, liveness tracking disabled")
		default:
			return err
		}
	}

	r.wg.Add(2)
	go r.admissionLoop(runCtx)
	go r.fleetLoop(runCtx)

	<-runCtx.Done()
	return nil
}

// Stop gracefully stops the registrar
func (r *Registrar) Stop() {
	r.logger.Info("Stopping registrar...")
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
	r.logger.Info("Registrar stopped")
}

// admissionLoop moves requests from job-register to the global queue in arrival order
func (r *Registrar) admissionLoop(ctx context.Context) {
	defer r.wg.Done()

	for ctx.Err() == nil {
		req, err := r.transport.PopJobRequest(ctx, r.popTimeout)
		if err != nil {
			r.handlePopError(ctx, "job request", err)
			continue
		}

		if err := r.Admit(context.WithoutCancel(ctx), req); err != nil {
			r.logger.Error("Failed to admit job",
				slog.String("job_id", req.ID()),
				slog.Any("error", err),
			)
		}
	}
}

// Admit stamps a request and places it on the global queue
func (r *Registrar) Admit(ctx context.Context, req model.JobRequest[any]) error {
	job := model.Admit(req, r.now())
	if err := transport.PushJob(ctx, r.transport, job); err != nil {
		return err
	}

	r.logger.Info("Job admitted",
		slog.String("job_id", job.ID()),
		slog.String("job_name", job.Name()),
		slog.Time("registered_at", job.RegisteredAt()),
	)
	return nil
}

// fleetLoop records worker announcements
func (r *Registrar) fleetLoop(ctx context.Context) {
	defer r.wg.Done()

	for ctx.Err() == nil {
		w, err := r.transport.PopWorker(ctx, r.popTimeout)
		if err != nil {
			r.handlePopError(ctx, "worker", err)
			continue
		}

		r.fleet.Add(w, r.now())
		r.logger.Info("Worker registered",
			slog.String("worker_id", w.ID),
			slog.String("worker_name", w.Name),
			slog.Int("processes", w.Processes),
			slog.Int("fleet_processes", r.fleet.TotalProcesses()),
		)
	}
}

// livenessLoop refreshes workers on every ping and drops the silent ones
func (r *Registrar) livenessLoop(ctx context.Context, pings <-chan string) {
	defer r.wg.Done()

	interval := r.pingTimeout / 2
	if interval <= 0 {
		interval = r.pingTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-pings:
			if !ok {
				return
			}
			if !r.fleet.Touch(id, r.now()) {
				r.logger.Debug("Ping from unknown worker", slog.String("worker_id", id))
			}
		case <-ticker.C:
			for _, id := range r.fleet.Expire(r.now(), r.pingTimeout) {
				r.logger.Warn("Dropping worker (ping check failed)", slog.String("worker_id", id))
			}
		}
	}
}

func (r *Registrar) handlePopError(ctx context.Context, what string, err error) {
	if errors.Is(err, transport.ErrNoJob) || errors.Is(err, transport.ErrNoMessage) || ctx.Err() != nil {
		return
	}

	r.logger.Error("Failed to pop "+what, slog.Any("error", err))
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
}
