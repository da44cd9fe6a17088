package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/jq/internal/transport"
)

// heartbeatLoop broadcasts a liveness ping every pingInterval
func (w *Worker) heartbeatLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		if err := w.transport.Ping(ctx, w.identity.ID); err != nil {
			if errors.Is(err, transport.ErrPingUnsupported) {
				w.logger.Warn("Broker does not carry pings, heartbeat disabled")
				return
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to send heartbeat", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
