// Package handler maps job names to handlers and dispatches opaque jobs to them.
//
// Handlers are registered with a concrete argument type; the registry stores a
// type-erased closure that converts the job's value tree into that type at
// dispatch time. A job that cannot be converted, has no handler, or makes its
// handler panic becomes a terminal failure result instead of an error.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/jq/internal/codec"
	"github.com/cuongbtq/jq/internal/model"
)

// HandlerFunc is a type-erased job handler
type HandlerFunc func(ctx context.Context, job model.Job[codec.Value]) model.JobResult

// Registry maps job names to handlers.
// Registration happens before Seal; after Seal the registry is read-only and lookups take no lock.
type Registry struct {
	mu       sync.Mutex
	sealed   atomic.Bool
	handlers map[string]HandlerFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
		now:      time.Now,
	}
}

// Handle registers fn under name. Registering a name twice replaces the handler.
func (r *Registry) Handle(name string, fn HandlerFunc) {
	if name == "" {
		panic("handler: empty job name")
	}
	if fn == nil {
		panic(fmt.Sprintf("handler: nil handler for job %q", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		panic(fmt.Sprintf("handler: register %q after seal", name))
	}
	r.handlers[name] = fn
}

// Seal ends the registration phase
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

// Sealed reports whether Seal has been called
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Get returns the handler for name
func (r *Registry) Get(name string) (HandlerFunc, bool) {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	fn, ok := r.handlers[name]
	return fn, ok
}

// Names returns the registered job names in sorted order
func (r *Registry) Names() []string {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler registered for job and returns its result.
// It never returns an error: every failure is expressed as a failure result.
func (r *Registry) Dispatch(ctx context.Context, job model.Job[codec.Value]) model.JobResult {
	fn, ok := r.Get(job.Name())
	if !ok {
		r.logger.Warn("No handler registered",
			slog.String("job_id", job.ID()),
			slog.String("job_name", job.Name()),
		)
		return model.NewFailure(job.ID(), r.now(), model.ReasonOther,
			fmt.Sprintf("no handler registered for job %q", job.Name()), false, nil)
	}

	if timeout := job.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result := r.invoke(ctx, fn, job)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !result.IsFailure() {
		r.logger.Warn("Job exceeded its timeout",
			slog.String("job_id", job.ID()),
			slog.String("job_name", job.Name()),
			slog.Duration("timeout", job.Timeout()),
		)
		return model.NewFailure(job.ID(), r.now(), model.ReasonTimeout,
			fmt.Sprintf("job exceeded timeout of %s", job.Timeout()), true, nil)
	}
	return result
}

func (r *Registry) invoke(ctx context.Context, fn HandlerFunc, job model.Job[codec.Value]) (result model.JobResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Job handler panicked",
				slog.String("job_id", job.ID()),
				slog.String("job_name", job.Name()),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())),
			)
			result = model.NewFailure(job.ID(), r.now(), model.ReasonOther,
				fmt.Sprintf("handler panicked: %v", p), false, nil)
		}
	}()
	return fn(ctx, job)
}

func (r *Registry) convertFailure(job model.Job[codec.Value], err error) model.JobResult {
	r.logger.Warn("Job argument does not match handler",
		slog.String("job_id", job.ID()),
		slog.String("job_name", job.Name()),
		slog.Any("error", err),
	)
	return model.NewFailure(job.ID(), r.now(), model.ReasonOther,
		fmt.Sprintf("invalid argument for job %q: %v", job.Name(), err), false, nil)
}

// RegisterRaw registers a handler that receives the job with its argument as a value tree
func RegisterRaw[R Outcome](r *Registry, name string, fn func(context.Context, model.Job[codec.Value]) R) {
	r.Handle(name, func(ctx context.Context, job model.Job[codec.Value]) model.JobResult {
		return fn(ctx, job).JobResult(job.ID(), r.now())
	})
}

// Register registers a handler whose argument is converted to A before the call
func Register[A any, R Outcome](r *Registry, name string, fn func(context.Context, model.Job[A]) R) {
	r.Handle(name, func(ctx context.Context, job model.Job[codec.Value]) model.JobResult {
		typed, err := model.TryMapArgument(job, codec.Convert[A])
		if err != nil {
			return r.convertFailure(job, err)
		}
		return fn(ctx, typed).JobResult(job.ID(), r.now())
	})
}

// RegisterSimple registers a handler that only needs the argument
func RegisterSimple[A any, R Outcome](r *Registry, name string, fn func(context.Context, A) R) {
	Register(r, name, func(ctx context.Context, job model.Job[A]) R {
		return fn(ctx, job.TakeArgument())
	})
}

// RegisterFunc registers a (value, error) handler; see Return for how the pair is reported
func RegisterFunc[A, T any](r *Registry, name string, fn func(context.Context, A) (T, error)) {
	RegisterSimple(r, name, func(ctx context.Context, arg A) Outcome {
		return Return(fn(ctx, arg))
	})
}
