package model

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// JobRequest is a producer's proposal for a unit of work.
// It is immutable once built; use RequestBuilder to create one.
type JobRequest[A any] struct {
	id         string
	name       string
	argument   A
	priority   int
	maxRetry   int
	keepResult bool
	timeout    int64
}

// ID returns the request id
func (r JobRequest[A]) ID() string { return r.id }

// Name returns the handler key
func (r JobRequest[A]) Name() string { return r.name }

// Argument returns the job argument
func (r JobRequest[A]) Argument() A { return r.argument }

// Priority returns the ordering hint for the queue manager
func (r JobRequest[A]) Priority() int { return r.priority }

// MaxRetry returns the retry budget
func (r JobRequest[A]) MaxRetry() int { return r.maxRetry }

// KeepResult reports whether the result must be retained
func (r JobRequest[A]) KeepResult() bool { return r.keepResult }

// TimeoutMs returns the execution budget in milliseconds
func (r JobRequest[A]) TimeoutMs() int64 { return r.timeout }

// Timeout returns the execution budget as a duration
func (r JobRequest[A]) Timeout() time.Duration {
	return time.Duration(r.timeout) * time.Millisecond
}

// Job is a unit of work admitted into the global queue.
// Jobs arrive from the transport or from Admit; user code does not build them.
type Job[A any] struct {
	id           string
	name         string
	argument     A
	priority     int
	maxRetry     int
	keepResult   bool
	timeout      int64
	registeredAt time.Time
}

// Admit turns a request into the authoritative job, stamping its admission time.
// It is the registrar's half of the two-phase admission protocol.
func Admit[A any](req JobRequest[A], registeredAt time.Time) Job[A] {
	return Job[A]{
		id:           req.id,
		name:         req.name,
		argument:     req.argument,
		priority:     req.priority,
		maxRetry:     req.maxRetry,
		keepResult:   req.keepResult,
		timeout:      req.timeout,
		registeredAt: registeredAt.UTC(),
	}
}

// ID returns the job id
func (j Job[A]) ID() string { return j.id }

// Name returns the handler key
func (j Job[A]) Name() string { return j.name }

// Argument returns the job argument without consuming the job
func (j Job[A]) Argument() A { return j.argument }

// Priority returns the ordering hint for the queue manager
func (j Job[A]) Priority() int { return j.priority }

// MaxRetry returns the retry budget
func (j Job[A]) MaxRetry() int { return j.maxRetry }

// KeepResult reports whether the result must be retained
func (j Job[A]) KeepResult() bool { return j.keepResult }

// TimeoutMs returns the execution budget in milliseconds
func (j Job[A]) TimeoutMs() int64 { return j.timeout }

// Timeout returns the execution budget as a duration
func (j Job[A]) Timeout() time.Duration {
	return time.Duration(j.timeout) * time.Millisecond
}

// RegisteredAt returns the admission time (UTC)
func (j Job[A]) RegisteredAt() time.Time { return j.registeredAt }

// TakeArgument consumes the job and returns its argument
func (j Job[A]) TakeArgument() A { return j.argument }

// MapArgument converts the argument of a job, keeping every other field
func MapArgument[A, B any](j Job[A], f func(A) B) Job[B] {
	return Job[B]{
		id:           j.id,
		name:         j.name,
		argument:     f(j.argument),
		priority:     j.priority,
		maxRetry:     j.maxRetry,
		keepResult:   j.keepResult,
		timeout:      j.timeout,
		registeredAt: j.registeredAt,
	}
}

// TryMapArgument is MapArgument for conversions that can fail
func TryMapArgument[A, B any](j Job[A], f func(A) (B, error)) (Job[B], error) {
	arg, err := f(j.argument)
	if err != nil {
		return Job[B]{}, err
	}
	return MapArgument(j, func(A) B { return arg }), nil
}

type requestWire[A any] struct {
	ID         string `msgpack:"id"`
	Name       string `msgpack:"name"`
	Argument   A      `msgpack:"argument"`
	Priority   int    `msgpack:"priority"`
	MaxRetry   int    `msgpack:"max_retry"`
	KeepResult bool   `msgpack:"keep_result"`
	Timeout    int64  `msgpack:"timeout"`
}

type jobWire[A any] struct {
	ID           string    `msgpack:"id"`
	Name         string    `msgpack:"name"`
	Argument     A         `msgpack:"argument"`
	Priority     int       `msgpack:"priority"`
	MaxRetry     int       `msgpack:"max_retry"`
	KeepResult   bool      `msgpack:"keep_result"`
	Timeout      int64     `msgpack:"timeout"`
	RegisteredAt time.Time `msgpack:"registered_at"`
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (r JobRequest[A]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(requestWire[A]{
		ID:         r.id,
		Name:       r.name,
		Argument:   r.argument,
		Priority:   r.priority,
		MaxRetry:   r.maxRetry,
		KeepResult: r.keepResult,
		Timeout:    r.timeout,
	})
}

// DecodeMsgpack implements msgpack.CustomDecoder
func (r *JobRequest[A]) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w requestWire[A]
	if err := dec.Decode(&w); err != nil {
		return err
	}

	*r = JobRequest[A]{
		id:         w.ID,
		name:       w.Name,
		argument:   w.Argument,
		priority:   w.Priority,
		maxRetry:   w.MaxRetry,
		keepResult: w.KeepResult,
		timeout:    w.Timeout,
	}
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (j Job[A]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(jobWire[A]{
		ID:           j.id,
		Name:         j.name,
		Argument:     j.argument,
		Priority:     j.priority,
		MaxRetry:     j.maxRetry,
		KeepResult:   j.keepResult,
		Timeout:      j.timeout,
		RegisteredAt: j.registeredAt,
	})
}

// DecodeMsgpack implements msgpack.CustomDecoder
func (j *Job[A]) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w jobWire[A]
	if err := dec.Decode(&w); err != nil {
		return err
	}

	*j = Job[A]{
		id:           w.ID,
		name:         w.Name,
		argument:     w.Argument,
		priority:     w.Priority,
		maxRetry:     w.MaxRetry,
		keepResult:   w.KeepResult,
		timeout:      w.Timeout,
		registeredAt: w.RegisteredAt.UTC(),
	}
	return nil
}
