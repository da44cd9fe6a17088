// Package transport moves workers, job requests, jobs and results across the
// four named queues of a broker, encoding every payload with the codec.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/jq/internal/codec"
	"github.com/cuongbtq/jq/internal/model"
	"github.com/cuongbtq/jq/shared/broker"
)

// Transport is safe for concurrent use when the underlying broker is
type Transport struct {
	broker broker.Broker
	logger *slog.Logger
}

// New creates a transport over b
func New(b broker.Broker, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		broker: b,
		logger: logger,
	}
}

// RegisterWorker announces a worker on the worker-register queue
func (t *Transport) RegisterWorker(ctx context.Context, w model.Worker) error {
	return t.push(ctx, "register worker", QueueWorkerRegister, w)
}

// EnqueueJob submits a request on the job-register queue
func EnqueueJob[A any](ctx context.Context, t *Transport, req model.JobRequest[A]) error {
	return t.push(ctx, "enqueue job", QueueJobRegister, req)
}

// BlockingPopJob takes the next job from the global queue, decoding its argument as A.
// A zero timeout waits until ctx is done; otherwise ErrNoJob is returned when it elapses.
func BlockingPopJob[A any](ctx context.Context, t *Transport, timeout time.Duration) (model.Job[A], error) {
	data, err := t.pop(ctx, "pop job", QueueGlobal, timeout, ErrNoJob)
	if err != nil {
		return model.Job[A]{}, err
	}
	return codec.Decode[model.Job[A]](data)
}

// PopJob is BlockingPopJob with the argument left as a value tree
func (t *Transport) PopJob(ctx context.Context, timeout time.Duration) (model.Job[codec.Value], error) {
	return BlockingPopJob[codec.Value](ctx, t, timeout)
}

// ReportJobResult pushes a result on the result queue
func (t *Transport) ReportJobResult(ctx context.Context, result model.JobResult) error {
	return t.push(ctx, "report result", QueueResult, result)
}

// PopWorker takes the next worker announcement
func (t *Transport) PopWorker(ctx context.Context, timeout time.Duration) (model.Worker, error) {
	data, err := t.pop(ctx, "pop worker", QueueWorkerRegister, timeout, ErrNoMessage)
	if err != nil {
		return model.Worker{}, err
	}
	return codec.Decode[model.Worker](data)
}

// PopJobRequest takes the next request awaiting admission
func (t *Transport) PopJobRequest(ctx context.Context, timeout time.Duration) (model.JobRequest[codec.Value], error) {
	data, err := t.pop(ctx, "pop job request", QueueJobRegister, timeout, ErrNoJob)
	if err != nil {
		return model.JobRequest[codec.Value]{}, err
	}
	return codec.Decode[model.JobRequest[codec.Value]](data)
}

// PushJob places an admitted job on the global queue
func PushJob[A any](ctx context.Context, t *Transport, job model.Job[A]) error {
	return t.push(ctx, "push job", QueueGlobal, job)
}

// PopJobResult takes the next reported result
func (t *Transport) PopJobResult(ctx context.Context, timeout time.Duration) (model.JobResult, error) {
	data, err := t.pop(ctx, "pop result", QueueResult, timeout, ErrNoMessage)
	if err != nil {
		return model.JobResult{}, err
	}
	return codec.Decode[model.JobResult](data)
}

type pingMessage struct {
	WorkerID string `msgpack:"worker_id"`
}

// Ping broadcasts a liveness message for workerID
func (t *Transport) Ping(ctx context.Context, workerID string) error {
	pub, ok := t.broker.(broker.Publisher)
	if !ok {
		return ErrPingUnsupported
	}

	data, err := codec.Encode(pingMessage{WorkerID: workerID})
	if err != nil {
		return err
	}

	if err := pub.Publish(ctx, ChannelPing, data); err != nil {
		return &TransportError{Op: "ping", Queue: ChannelPing, Err: err}
	}
	return nil
}

// Pings delivers the worker id of every liveness message until ctx is done
func (t *Transport) Pings(ctx context.Context) (<-chan string, error) {
	sub, ok := t.broker.(broker.Subscriber)
	if !ok {
		return nil, ErrPingUnsupported
	}

	raw, err := sub.Subscribe(ctx, ChannelPing)
	if err != nil {
		return nil, &TransportError{Op: "subscribe", Queue: ChannelPing, Err: err}
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for data := range raw {
			msg, err := codec.Decode[pingMessage](data)
			if err != nil {
				t.logger.Warn("Invalid ping message", slog.Any("error", err))
				continue
			}
			select {
			case out <- msg.WorkerID:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (t *Transport) push(ctx context.Context, op, queue string, v any) error {
	data, err := codec.Encode(v)
	if err != nil {
		return err
	}

	if err := t.broker.Push(ctx, queue, data); err != nil {
		return &TransportError{Op: op, Queue: queue, Err: err}
	}

	t.logger.Debug("Pushed message",
		slog.String("queue", queue),
		slog.Int("body_size", len(data)),
	)
	return nil
}

func (t *Transport) pop(ctx context.Context, op, queue string, timeout time.Duration, empty error) ([]byte, error) {
	data, err := t.broker.BlockingPop(ctx, queue, timeout)
	if errors.Is(err, broker.ErrEmpty) {
		return nil, empty
	}
	if err != nil {
		return nil, &TransportError{Op: op, Queue: queue, Err: err}
	}
	return data, nil
}
