// Package resultsink drains the result queue into a durable archive.
package resultsink

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/jq/internal/model"
	"github.com/cuongbtq/jq/internal/transport"
)

// Store persists results
type Store interface {
	SaveResult(ctx context.Context, result model.JobResult) error
}

// Source yields reported results
type Source interface {
	PopJobResult(ctx context.Context, timeout time.Duration) (model.JobResult, error)
}

// Config holds sink configuration
type Config struct {
	Logger     *slog.Logger
	Source     Source
	Store      Store
	PopTimeout time.Duration
}

// Sink pops results and archives them
type Sink struct {
	logger     *slog.Logger
	source     Source
	store      Store
	popTimeout time.Duration
	wg         sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// New creates a new sink
func New(cfg *Config) *Sink {
	popTimeout := cfg.PopTimeout
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	return &Sink{
		logger:     cfg.Logger,
		source:     cfg.Source,
		store:      cfg.Store,
		popTimeout: popTimeout,
		stopChan:   make(chan struct{}),
	}
}

// Start runs the drain loop until ctx is done or Stop is called
func (s *Sink) Start(ctx context.Context) error {
	s.logger.Info("Starting result sink", slog.Duration("pop_timeout", s.popTimeout))

	s.wg.Add(1)
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		result, err := s.source.PopJobResult(ctx, s.popTimeout)
		if err != nil {
			if errors.Is(err, transport.ErrNoMessage) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("Failed to pop result", slog.Any("error", err))
			if !s.sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		s.archive(ctx, result)
	}
}

func (s *Sink) archive(ctx context.Context, result model.JobResult) {
	if err := result.Validate(); err != nil {
		s.logger.Warn("Dropping invalid result",
			slog.String("job_id", result.ID),
			slog.Any("error", err),
		)
		return
	}

	if err := s.store.SaveResult(ctx, result); err != nil {
		s.logger.Error("Failed to archive result",
			slog.String("job_id", result.ID),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("Result archived",
		slog.String("job_id", result.ID),
		slog.String("type", string(result.Type)),
		slog.Bool("should_retry", result.ShouldRetry),
	)
}

func (s *Sink) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}

// Stop signals the loop to exit and waits for the in-flight result
func (s *Sink) Stop() {
	s.logger.Info("Stopping result sink...")
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	s.logger.Info("Result sink stopped")
}
