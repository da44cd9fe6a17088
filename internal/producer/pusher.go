// Package producer submits job requests using a fixed default policy.
package producer

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/jq/internal/idgen"
	"github.com/cuongbtq/jq/internal/model"
	"github.com/cuongbtq/jq/internal/transport"
)

// Pusher builds and enqueues requests. Different pushers may carry different defaults.
type Pusher struct {
	transport *transport.Transport
	defaults  model.Defaults
	logger    *slog.Logger
}

// NewPusher creates a pusher that applies defaults to every request it builds
func NewPusher(t *transport.Transport, defaults model.Defaults, logger *slog.Logger) *Pusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{
		transport: t,
		defaults:  defaults,
		logger:    logger,
	}
}

// Defaults returns the policy this pusher applies
func (p *Pusher) Defaults() model.Defaults {
	return p.defaults
}

// NewRequest starts a builder carrying this pusher's defaults and a fresh time-ordered id
func NewRequest[A any](p *Pusher, name string, arg A) *model.RequestBuilder[A] {
	return model.NewRequestBuilder[A](p.defaults).
		ID(idgen.New()).
		Name(name).
		Argument(arg)
}

// Push enqueues a built request
func Push[A any](ctx context.Context, p *Pusher, req model.JobRequest[A]) error {
	if err := transport.EnqueueJob(ctx, p.transport, req); err != nil {
		p.logger.Error("Failed to enqueue job",
			slog.String("job_id", req.ID()),
			slog.String("job_name", req.Name()),
			slog.Any("error", err),
		)
		return err
	}

	p.logger.Info("Job enqueued",
		slog.String("job_id", req.ID()),
		slog.String("job_name", req.Name()),
		slog.Int("priority", req.Priority()),
	)
	return nil
}

// Submit builds a request with every optional field defaulted and enqueues it, returning its id
func Submit[A any](ctx context.Context, p *Pusher, name string, arg A) (string, error) {
	req, err := NewRequest(p, name, arg).TryBuild()
	if err != nil {
		return "", err
	}
	if err := Push(ctx, p, req); err != nil {
		return "", err
	}
	return req.ID(), nil
}
