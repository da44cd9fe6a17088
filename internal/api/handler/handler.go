package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/jq/internal/producer"
	"github.com/cuongbtq/jq/internal/resultsink"
)

// ResultReader reads archived results
type ResultReader interface {
	ListResults(ctx context.Context, filter resultsink.ResultFilter) ([]resultsink.Record, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Pusher *producer.Pusher
	// Results is optional; without it the results endpoints answer 503
	Results ResultReader
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger  *slog.Logger
	pusher  *producer.Pusher
	results ResultReader
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:  deps.Logger,
		pusher:  deps.Pusher,
		results: deps.Results,
	}
}
