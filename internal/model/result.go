package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ResultType tags the JobResult variant
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultFailure ResultType = "failure"
)

// FailureReason explains why an attempt failed
type FailureReason string

const (
	ReasonTimeout FailureReason = "timeout"
	ReasonOther   FailureReason = "other"
)

var (
	ErrUnknownResultType = errors.New("unknown result type")
	ErrMissingResultID   = errors.New("result id is required")
	ErrMissingReason     = errors.New("failure reason is required")
)

// JobResult is the outcome of one execution attempt.
//
// It is a tagged union: Type selects which of the remaining fields are
// meaningful. Success carries Result; Failure carries Message, Reason,
// ShouldRetry and Error.
type JobResult struct {
	Type        ResultType    `msgpack:"type"`
	ID          string        `msgpack:"id"`
	FinishedAt  time.Time     `msgpack:"finished_at"`
	Result      any           `msgpack:"result,omitempty"`
	Message     string        `msgpack:"message,omitempty"`
	Reason      FailureReason `msgpack:"reason,omitempty"`
	ShouldRetry bool          `msgpack:"should_retry"`
	Error       any           `msgpack:"error,omitempty"`
}

// NewSuccess builds a success result
func NewSuccess(id string, finishedAt time.Time, result any) JobResult {
	return JobResult{
		Type:       ResultSuccess,
		ID:         id,
		FinishedAt: finishedAt.UTC(),
		Result:     result,
	}
}

// NewFailure builds a failure result
func NewFailure(id string, finishedAt time.Time, reason FailureReason, message string, shouldRetry bool, detail any) JobResult {
	return JobResult{
		Type:        ResultFailure,
		ID:          id,
		FinishedAt:  finishedAt.UTC(),
		Message:     message,
		Reason:      reason,
		ShouldRetry: shouldRetry,
		Error:       detail,
	}
}

// IsSuccess reports whether the result is the success variant
func (r JobResult) IsSuccess() bool { return r.Type == ResultSuccess }

// IsFailure reports whether the result is the failure variant
func (r JobResult) IsFailure() bool { return r.Type == ResultFailure }

// JobResult lets handlers return a result directly. The result is bound to
// the job id it is dispatched for; finished_at is filled in when unset.
func (r JobResult) JobResult(id string, finishedAt time.Time) JobResult {
	r.ID = id
	if r.FinishedAt.IsZero() {
		r.FinishedAt = finishedAt.UTC()
	}
	return r
}

// Validate checks the union is consistent
func (r JobResult) Validate() error {
	if r.ID == "" {
		return ErrMissingResultID
	}

	switch r.Type {
	case ResultSuccess:
		return nil
	case ResultFailure:
		switch r.Reason {
		case ReasonTimeout, ReasonOther:
			return nil
		case "":
			return ErrMissingReason
		default:
			return fmt.Errorf("invalid failure reason %q", r.Reason)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownResultType, r.Type)
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder.
// Timestamps are normalized to UTC.
func (r *JobResult) DecodeMsgpack(dec *msgpack.Decoder) error {
	type plain JobResult
	var p plain
	if err := dec.Decode(&p); err != nil {
		return err
	}

	*r = JobResult(p)
	r.FinishedAt = r.FinishedAt.UTC()
	return nil
}
