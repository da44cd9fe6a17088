package dto

import "encoding/json"

// CreateJobRequest is the body of POST /api/v1/jobs. Optional fields fall
// back to the producer defaults.
type CreateJobRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name" binding:"required"`
	Argument   json.RawMessage `json:"argument"`
	Priority   *int            `json:"priority"`
	MaxRetry   *int            `json:"max_retry"`
	KeepResult *bool           `json:"keep_result"`
	TimeoutMs  *int64          `json:"timeout_ms"`
}

type CreateJobResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type ListResultsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListResultsResponse struct {
	Results    []ResultDTO `json:"results"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type ResultDTO struct {
	Seq         int64           `json:"seq"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	FinishedAt  string          `json:"finished_at"`
	Result      json.RawMessage `json:"result,omitempty"`
	Message     string          `json:"message,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	ShouldRetry bool            `json:"should_retry"`
	Error       json.RawMessage `json:"error,omitempty"`
	RecordedAt  string          `json:"recorded_at"`
}
