package handler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuongbtq/jq/internal/model"
)

func TestClassify(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		result model.JobResult
		want   State
	}{
		{name: "success", result: model.NewSuccess("r1", now, nil), want: StateSucceeded},
		{name: "retryable", result: model.NewFailure("r1", now, model.ReasonTimeout, "slow", true, nil), want: StateFailedRetryable},
		{name: "terminal", result: model.NewFailure("r1", now, model.ReasonOther, "bad", false, nil), want: StateFailedTerminal},
		{name: "zero value", result: model.JobResult{}, want: StateFailedTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.result))
		})
	}
}

func TestState_Transitions(t *testing.T) {
	allowed := map[State][]State{
		StateReceived:        {StateDispatched, StateFailedTerminal},
		StateDispatched:      {StateSucceeded, StateFailedRetryable, StateFailedTerminal},
		StateSucceeded:       {StateReported},
		StateFailedRetryable: {StateReported},
		StateFailedTerminal:  {StateReported},
		StateReported:        nil,
	}

	all := []State{StateReceived, StateDispatched, StateSucceeded, StateFailedRetryable, StateFailedTerminal, StateReported}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "received", StateReceived.String())
	assert.Equal(t, "failed_retryable", StateFailedRetryable.String())
	assert.Equal(t, "unknown", State(99).String())
}

type detailedErr struct{}

func (detailedErr) Error() string { return "quota exceeded" }
func (detailedErr) Detail() any   { return map[string]any{"limit": int64(10)} }

func TestFail_Mapping(t *testing.T) {
	at := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	res := Fail(Permanent(detailedErr{})).JobResult("r1", at)
	assert.False(t, res.ShouldRetry)
	assert.Equal(t, "quota exceeded", res.Message)
	assert.Equal(t, map[string]any{"limit": int64(10)}, res.Error)

	res = Fail(nil).JobResult("r1", at)
	assert.True(t, res.IsFailure())
	assert.True(t, res.ShouldRetry)

	res = Return("v", nil).JobResult("r1", at)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, "v", res.Result)

	assert.Nil(t, Permanent(nil))
	assert.True(t, errors.Is(Permanent(errors.ErrUnsupported), errors.ErrUnsupported))
}
