package model

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newTestRequest(t *testing.T, arg map[string]any) JobRequest[map[string]any] {
	t.Helper()
	return NewRequestBuilder[map[string]any](Defaults{Timeout: 5 * time.Second, MaxRetry: 1}).
		ID("r1").
		Name("echo").
		Argument(arg).
		KeepResult(true).
		Build()
}

func TestAdmit(t *testing.T) {
	req := NewRequestBuilder[string](Defaults{}).
		ID("r1").
		Name("echo").
		Argument("hi").
		Priority(3).
		MaxRetry(2).
		KeepResult(true).
		Timeout(1500 * time.Millisecond).
		Build()

	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	job := Admit(req, at)

	assert.Equal(t, "r1", job.ID())
	assert.Equal(t, "echo", job.Name())
	assert.Equal(t, "hi", job.Argument())
	assert.Equal(t, 3, job.Priority())
	assert.Equal(t, 2, job.MaxRetry())
	assert.True(t, job.KeepResult())
	assert.Equal(t, int64(1500), job.TimeoutMs())
	assert.Equal(t, 1500*time.Millisecond, job.Timeout())
	assert.True(t, at.Equal(job.RegisteredAt()))
	assert.Equal(t, time.UTC, job.RegisteredAt().Location())
}

func TestMapArgument_PreservesFields(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		priority int
		maxRetry int
		keep     bool
		timeout  time.Duration
	}{
		{name: "zero values", priority: 0, maxRetry: 0, keep: false, timeout: 0},
		{name: "positive priority", priority: 10, maxRetry: 3, keep: true, timeout: time.Second},
		{name: "negative priority", priority: -5, maxRetry: 1, keep: false, timeout: 250 * time.Millisecond},
		{name: "large timeout", priority: 1, maxRetry: 100, keep: true, timeout: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequestBuilder[int](Defaults{}).
				ID("id-" + tt.name).
				Name("count").
				Argument(41).
				Priority(tt.priority).
				MaxRetry(tt.maxRetry).
				KeepResult(tt.keep).
				Timeout(tt.timeout).
				Build()
			job := Admit(req, at)

			mapped := MapArgument(job, func(n int) string { return strconv.Itoa(n + 1) })

			assert.Equal(t, "42", mapped.Argument())
			assert.Equal(t, job.ID(), mapped.ID())
			assert.Equal(t, job.Name(), mapped.Name())
			assert.Equal(t, job.Priority(), mapped.Priority())
			assert.Equal(t, job.MaxRetry(), mapped.MaxRetry())
			assert.Equal(t, job.KeepResult(), mapped.KeepResult())
			assert.Equal(t, job.TimeoutMs(), mapped.TimeoutMs())
			assert.Equal(t, job.RegisteredAt(), mapped.RegisteredAt())

			// the source job is untouched
			assert.Equal(t, 41, job.Argument())
		})
	}
}

func TestTryMapArgument(t *testing.T) {
	job := Admit(newTestRequest(t, map[string]any{"msg": "hi"}), time.Now())

	t.Run("success", func(t *testing.T) {
		mapped, err := TryMapArgument(job, func(m map[string]any) (string, error) {
			return m["msg"].(string), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "hi", mapped.TakeArgument())
		assert.Equal(t, job.ID(), mapped.ID())
	})

	t.Run("failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := TryMapArgument(job, func(map[string]any) (string, error) {
			return "", boom
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestJobRequest_MsgpackRoundTrip(t *testing.T) {
	req := newTestRequest(t, map[string]any{"msg": "hi"})

	data, err := msgpack.Marshal(req)
	require.NoError(t, err)

	var got JobRequest[map[string]any]
	require.NoError(t, msgpack.Unmarshal(data, &got))

	assert.Equal(t, req, got)
	assert.Equal(t, int64(5000), got.TimeoutMs())
}

func TestJobRequest_WireKeys(t *testing.T) {
	req := newTestRequest(t, map[string]any{"msg": "hi"})

	data, err := msgpack.Marshal(req)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &fields))

	for _, key := range []string{"id", "name", "argument", "priority", "max_retry", "keep_result", "timeout"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "registered_at")
}

func TestJob_MsgpackRoundTrip(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 500, time.UTC)
	job := Admit(newTestRequest(t, map[string]any{"msg": "hi"}), at)

	data, err := msgpack.Marshal(job)
	require.NoError(t, err)

	var got Job[map[string]any]
	require.NoError(t, msgpack.Unmarshal(data, &got))

	assert.Equal(t, job.ID(), got.ID())
	assert.Equal(t, job.Name(), got.Name())
	assert.Equal(t, job.Argument(), got.Argument())
	assert.Equal(t, job.Priority(), got.Priority())
	assert.Equal(t, job.MaxRetry(), got.MaxRetry())
	assert.Equal(t, job.KeepResult(), got.KeepResult())
	assert.Equal(t, job.TimeoutMs(), got.TimeoutMs())
	assert.True(t, at.Equal(got.RegisteredAt()))
	assert.Equal(t, time.UTC, got.RegisteredAt().Location())
}

func TestJob_DecodeFromRequestPayload(t *testing.T) {
	// a request payload carries no registered_at; decoding it as a job leaves the stamp zero
	req := newTestRequest(t, map[string]any{"msg": "hi"})

	data, err := msgpack.Marshal(req)
	require.NoError(t, err)

	var got Job[map[string]any]
	require.NoError(t, msgpack.Unmarshal(data, &got))

	assert.Equal(t, "r1", got.ID())
	assert.True(t, got.RegisteredAt().IsZero())
}

func TestNewWorker(t *testing.T) {
	w := NewWorker("w1", "echo-worker", 4)

	data, err := msgpack.Marshal(w)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &fields))
	assert.Equal(t, "w1", fields["id"])
	assert.Equal(t, "echo-worker", fields["worker_name"])
	assert.Contains(t, fields, "processes")

	var got Worker
	require.NoError(t, msgpack.Unmarshal(data, &got))
	assert.Equal(t, w, got)
}
