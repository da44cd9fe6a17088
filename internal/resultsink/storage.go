package resultsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/jq/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS jq_results (
	seq          BIGSERIAL PRIMARY KEY,
	job_id       TEXT        NOT NULL,
	type         TEXT        NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	result       JSONB,
	message      TEXT        NOT NULL DEFAULT '',
	reason       TEXT        NOT NULL DEFAULT '',
	should_retry BOOLEAN     NOT NULL DEFAULT FALSE,
	error        JSONB,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS jq_results_job_id_idx ON jq_results (job_id, seq);
`

// Record is one archived result row. A job that was retried has one row per attempt.
type Record struct {
	Seq         int64          `db:"seq"`
	JobID       string         `db:"job_id"`
	Type        string         `db:"type"`
	FinishedAt  time.Time      `db:"finished_at"`
	Result      sql.NullString `db:"result"`
	Message     string         `db:"message"`
	Reason      string         `db:"reason"`
	ShouldRetry bool           `db:"should_retry"`
	Error       sql.NullString `db:"error"`
	RecordedAt  time.Time      `db:"recorded_at"`
}

// Storage archives results in PostgreSQL
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the results table if it does not exist
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create results schema: %w", err)
	}
	return nil
}

// SaveResult appends a result to the archive
func (s *Storage) SaveResult(ctx context.Context, result model.JobResult) error {
	rec, err := toRecord(result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jq_results (job_id, type, finished_at, result, message, reason, should_retry, error)
		VALUES (:job_id, :type, :finished_at, :result, :message, :reason, :should_retry, :error)
	`
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	s.logger.Debug("Result archived",
		slog.String("job_id", result.ID),
		slog.String("type", string(result.Type)),
	)
	return nil
}

// ResultFilter selects archived results
type ResultFilter struct {
	JobID    string
	PageSize int
	// AfterSeq skips rows up to and including this sequence number
	AfterSeq int64
}

// ListResults returns archived attempts oldest first. It fetches one row
// beyond PageSize so callers can tell whether another page exists.
func (s *Storage) ListResults(ctx context.Context, filter ResultFilter) ([]Record, error) {
	query := `
		SELECT seq, job_id, type, finished_at, result, message, reason, should_retry, error, recorded_at
		FROM jq_results
		WHERE seq > $1
	`
	args := []interface{}{filter.AfterSeq}
	argIdx := 2

	if filter.JobID != "" {
		query += fmt.Sprintf(" AND job_id = $%d", argIdx)
		args = append(args, filter.JobID)
		argIdx++
	}

	query += " ORDER BY seq"

	if filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.PageSize+1)
	}

	var records []Record
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return records, nil
}

// toRecord flattens a result into a row; opaque values are stored as JSON
func toRecord(result model.JobResult) (Record, error) {
	rec := Record{
		JobID:       result.ID,
		Type:        string(result.Type),
		FinishedAt:  result.FinishedAt,
		Message:     result.Message,
		Reason:      string(result.Reason),
		ShouldRetry: result.ShouldRetry,
	}

	var err error
	if rec.Result, err = toJSON(result.Result); err != nil {
		return Record{}, fmt.Errorf("failed to marshal result: %w", err)
	}
	if rec.Error, err = toJSON(result.Error); err != nil {
		return Record{}, fmt.Errorf("failed to marshal error detail: %w", err)
	}
	return rec, nil
}

func toJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
