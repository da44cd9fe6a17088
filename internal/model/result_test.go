package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestNewSuccess(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	res := NewSuccess("r1", at, map[string]any{"msg": "hi"})

	assert.True(t, res.IsSuccess())
	assert.False(t, res.IsFailure())
	assert.Equal(t, "r1", res.ID)
	assert.Equal(t, time.UTC, res.FinishedAt.Location())
	assert.NoError(t, res.Validate())
}

func TestNewFailure(t *testing.T) {
	res := NewFailure("r1", time.Now(), ReasonTimeout, "deadline exceeded", true, nil)

	assert.True(t, res.IsFailure())
	assert.False(t, res.IsSuccess())
	assert.Equal(t, ReasonTimeout, res.Reason)
	assert.True(t, res.ShouldRetry)
	assert.NoError(t, res.Validate())
}

func TestJobResult_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		result  JobResult
		wantErr error
	}{
		{
			name:   "success",
			result: NewSuccess("r1", now, nil),
		},
		{
			name:   "failure",
			result: NewFailure("r1", now, ReasonOther, "bad", false, nil),
		},
		{
			name:    "missing id",
			result:  NewSuccess("", now, nil),
			wantErr: ErrMissingResultID,
		},
		{
			name:    "unknown type",
			result:  JobResult{Type: "partial", ID: "r1"},
			wantErr: ErrUnknownResultType,
		},
		{
			name:    "zero value",
			result:  JobResult{ID: "r1"},
			wantErr: ErrUnknownResultType,
		},
		{
			name:    "failure without reason",
			result:  JobResult{Type: ResultFailure, ID: "r1"},
			wantErr: ErrMissingReason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("invalid reason", func(t *testing.T) {
		err := JobResult{Type: ResultFailure, ID: "r1", Reason: "crashed"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crashed")
	})
}

func TestJobResult_WireFormat(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		data, err := msgpack.Marshal(NewSuccess("r1", at, map[string]any{"msg": "hi"}))
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, msgpack.Unmarshal(data, &fields))
		assert.Equal(t, "success", fields["type"])
		assert.Equal(t, "r1", fields["id"])
		assert.Contains(t, fields, "finished_at")
		assert.Equal(t, map[string]any{"msg": "hi"}, fields["result"])
		assert.NotContains(t, fields, "reason")
	})

	t.Run("failure", func(t *testing.T) {
		data, err := msgpack.Marshal(NewFailure("r1", at, ReasonOther, "bad argument", false, "detail"))
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, msgpack.Unmarshal(data, &fields))
		assert.Equal(t, "failure", fields["type"])
		assert.Equal(t, "other", fields["reason"])
		assert.Equal(t, "bad argument", fields["message"])
		assert.Equal(t, false, fields["should_retry"])
		assert.Equal(t, "detail", fields["error"])
		assert.NotContains(t, fields, "result")
	})
}

func TestJobResult_RoundTrip(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	want := NewFailure("r1", at, ReasonTimeout, "slow", true, "ctx")

	data, err := msgpack.Marshal(want)
	require.NoError(t, err)

	var got JobResult
	require.NoError(t, msgpack.Unmarshal(data, &got))
	assert.Equal(t, want, got)
}

func TestJobResult_IsItsOwnOutcome(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	later := at.Add(time.Minute)

	tests := []struct {
		name     string
		res      JobResult
		wantTime time.Time
	}{
		{name: "empty id and time are filled", res: NewSuccess("", time.Time{}, "x"), wantTime: later},
		{name: "foreign id is replaced", res: NewSuccess("other-id", at, "x"), wantTime: at},
		{name: "failure keeps its details", res: NewFailure("", at, ReasonOther, "bad", false, "d"), wantTime: at},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.res.JobResult("r1", later)
			assert.Equal(t, "r1", got.ID)
			assert.True(t, tt.wantTime.Equal(got.FinishedAt))
			assert.Equal(t, tt.res.Type, got.Type)
			assert.Equal(t, tt.res.Result, got.Result)
			assert.Equal(t, tt.res.Message, got.Message)
			assert.NoError(t, got.Validate())
		})
	}
}
