package handler

import (
	"context"
	"errors"
	"time"

	"github.com/cuongbtq/jq/internal/model"
)

// Outcome is anything a handler can return: it converts itself into a JobResult
// for the job it was produced for.
type Outcome interface {
	JobResult(id string, finishedAt time.Time) model.JobResult
}

// PermanentError marks a failure the queue manager must not retry
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so that it is reported with should_retry=false
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Detailer is implemented by errors that carry structured detail for the result's error field
type Detailer interface {
	Detail() any
}

type okOutcome struct {
	value any
}

func (o okOutcome) JobResult(id string, finishedAt time.Time) model.JobResult {
	return model.NewSuccess(id, finishedAt, o.value)
}

type failOutcome struct {
	err error
}

func (o failOutcome) JobResult(id string, finishedAt time.Time) model.JobResult {
	reason := model.ReasonOther
	shouldRetry := true

	var permanent *PermanentError
	switch {
	case errors.As(o.err, &permanent):
		shouldRetry = false
	case errors.Is(o.err, context.DeadlineExceeded):
		reason = model.ReasonTimeout
	}

	var detail any
	var d Detailer
	if errors.As(o.err, &d) {
		detail = d.Detail()
	}

	return model.NewFailure(id, finishedAt, reason, o.err.Error(), shouldRetry, detail)
}

// Ok reports a success carrying v as the result
func Ok(v any) Outcome {
	return okOutcome{value: v}
}

// Fail reports a failure for err.
// PermanentError is terminal, context.DeadlineExceeded is a retryable timeout,
// anything else is a retryable failure.
func Fail(err error) Outcome {
	if err == nil {
		err = errors.New("unknown error")
	}
	return failOutcome{err: err}
}

// Return is Ok(v) when err is nil and Fail(err) otherwise
func Return(v any, err error) Outcome {
	if err != nil {
		return Fail(err)
	}
	return Ok(v)
}
