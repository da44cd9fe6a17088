package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/jq/internal/codec"
	"github.com/cuongbtq/jq/internal/transport"
)

// popRetryDelay is how long a poller backs off after a broker failure
const popRetryDelay = time.Second

// spawnPollers spawns one poller goroutine per configured process
func (w *Worker) spawnPollers(ctx context.Context) {
	w.logger.Info("Spawning pollers",
		slog.Int("processes", w.identity.Processes),
	)

	for i := 0; i < w.identity.Processes; i++ {
		w.wg.Add(1)
		go w.pollerLoop(ctx, i)
	}
}

// pollerLoop is the pop, dispatch, report cycle of one poller
func (w *Worker) pollerLoop(ctx context.Context, num int) {
	defer w.wg.Done()

	pollerName := fmt.Sprintf("%s-%d", w.identity.ID, num)
	logger := w.logger.With(slog.String("poller", pollerName))
	logger.Debug("Poller started")

	for {
		if ctx.Err() != nil {
			logger.Debug("Poller stopping - context canceled")
			return
		}

		job, err := w.transport.PopJob(ctx, w.popTimeout)
		switch {
		case err == nil:
			w.processJob(context.WithoutCancel(ctx), job)
		case errors.Is(err, transport.ErrNoJob):
		case ctx.Err() != nil:
			logger.Debug("Poller stopping - context canceled")
			return
		case codec.IsDecodingError(err):
			// without an id there is nobody to report to
			logger.Error("Dropping undecodable job", slog.Any("error", err))
		default:
			logger.Error("Failed to pop job", slog.Any("error", err))
			if !w.sleep(ctx, popRetryDelay) {
				return
			}
		}
	}
}
