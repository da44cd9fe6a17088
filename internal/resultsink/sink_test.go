package resultsink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/jq/internal/model"
	"github.com/cuongbtq/jq/internal/transport"
	"github.com/cuongbtq/jq/shared/broker"
)

type memoryStore struct {
	mu      sync.Mutex
	results []model.JobResult
	failFor string
}

func (m *memoryStore) SaveResult(_ context.Context, result model.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result.ID == m.failFor {
		return errors.New("disk full")
	}
	m.results = append(m.results, result)
	return nil
}

func (m *memoryStore) saved() []model.JobResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.JobResult(nil), m.results...)
}

func newTestSink(t *testing.T, store Store) (*Sink, *transport.Transport) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := transport.New(broker.NewMemory(), logger)
	return New(&Config{
		Logger:     logger,
		Source:     tr,
		Store:      store,
		PopTimeout: 10 * time.Millisecond,
	}), tr
}

func TestSink_ArchivesResults(t *testing.T) {
	store := &memoryStore{failFor: "broken"}
	sink, tr := newTestSink(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sink.Start(ctx) }()

	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	require.NoError(t, tr.ReportJobResult(ctx, model.NewSuccess("r1", at, map[string]any{"msg": "hi"})))
	require.NoError(t, tr.ReportJobResult(ctx, model.JobResult{Type: "bogus", ID: "r2"}))
	require.NoError(t, tr.ReportJobResult(ctx, model.NewSuccess("broken", at, nil)))
	require.NoError(t, tr.ReportJobResult(ctx, model.NewFailure("r3", at, model.ReasonTimeout, "slow", true, nil)))

	require.Eventually(t, func() bool { return len(store.saved()) == 2 }, time.Second, 5*time.Millisecond)

	sink.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sink did not stop")
	}

	saved := store.saved()
	assert.Equal(t, "r1", saved[0].ID)
	assert.Equal(t, map[string]any{"msg": "hi"}, saved[0].Result)
	assert.Equal(t, "r3", saved[1].ID)
	assert.Equal(t, model.ReasonTimeout, saved[1].Reason)
}

func TestSink_StopsOnContextCancel(t *testing.T) {
	sink, _ := newTestSink(t, &memoryStore{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sink ignored cancellation")
	}
}

func TestToRecord(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		rec, err := toRecord(model.NewSuccess("r1", at, map[string]any{"msg": "hi"}))
		require.NoError(t, err)

		assert.Equal(t, "r1", rec.JobID)
		assert.Equal(t, "success", rec.Type)
		assert.Equal(t, at, rec.FinishedAt)
		assert.True(t, rec.Result.Valid)
		assert.JSONEq(t, `{"msg":"hi"}`, rec.Result.String)
		assert.False(t, rec.Error.Valid)
	})

	t.Run("failure", func(t *testing.T) {
		rec, err := toRecord(model.NewFailure("r1", at, model.ReasonOther, "bad", false, []any{"x", int64(1)}))
		require.NoError(t, err)

		assert.Equal(t, "failure", rec.Type)
		assert.Equal(t, "other", rec.Reason)
		assert.Equal(t, "bad", rec.Message)
		assert.False(t, rec.ShouldRetry)
		assert.False(t, rec.Result.Valid)
		assert.JSONEq(t, `["x",1]`, rec.Error.String)
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		_, err := toRecord(model.NewSuccess("r1", at, make(chan int)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to marshal result")
	})
}
