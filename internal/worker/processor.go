package worker

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/jq/internal/codec"
	"github.com/cuongbtq/jq/internal/handler"
	"github.com/cuongbtq/jq/internal/model"
)

// processJob dispatches one job and reports its result, returning the last state reached
func (w *Worker) processJob(ctx context.Context, job model.Job[codec.Value]) handler.State {
	logger := w.logger.With(
		slog.String("job_id", job.ID()),
		slog.String("job_name", job.Name()),
	)
	logger.Info("Processing job", slog.String("state", handler.StateReceived.String()))

	result := w.registry.Dispatch(ctx, job)
	state := handler.Classify(result)

	logger.Info("Job finished",
		slog.String("state", state.String()),
		slog.String("reason", string(result.Reason)),
	)

	if err := w.transport.ReportJobResult(ctx, result); err != nil {
		logger.Error("Failed to report job result", slog.Any("error", err))
		return state
	}

	logger.Debug("Job result reported", slog.String("state", handler.StateReported.String()))
	return handler.StateReported
}
