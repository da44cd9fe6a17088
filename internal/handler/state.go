package handler

import "github.com/cuongbtq/jq/internal/model"

// State is the worker-side lifecycle of one job
type State int

const (
	StateReceived State = iota
	StateDispatched
	StateSucceeded
	StateFailedRetryable
	StateFailedTerminal
	StateReported
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateDispatched:
		return "dispatched"
	case StateSucceeded:
		return "succeeded"
	case StateFailedRetryable:
		return "failed_retryable"
	case StateFailedTerminal:
		return "failed_terminal"
	case StateReported:
		return "reported"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether next directly follows s
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateReceived:
		// a missing handler or unreadable argument skips dispatch
		return next == StateDispatched || next == StateFailedTerminal
	case StateDispatched:
		return next == StateSucceeded || next == StateFailedRetryable || next == StateFailedTerminal
	case StateSucceeded, StateFailedRetryable, StateFailedTerminal:
		return next == StateReported
	default:
		return false
	}
}

// Classify maps a result onto its outcome state
func Classify(result model.JobResult) State {
	switch {
	case result.IsSuccess():
		return StateSucceeded
	case result.IsFailure() && result.ShouldRetry:
		return StateFailedRetryable
	default:
		return StateFailedTerminal
	}
}
