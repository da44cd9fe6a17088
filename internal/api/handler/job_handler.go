package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/jq/internal/api/dto"
	"github.com/cuongbtq/jq/internal/idgen"
	"github.com/cuongbtq/jq/internal/model"
	"github.com/cuongbtq/jq/internal/producer"
	"github.com/cuongbtq/jq/internal/resultsink"
)

// CreateJob handles POST /api/v1/jobs
// Builds a job request and places it on the job-register queue
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	arg, present, err := decodeArgument(req.Argument)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "argument is not valid JSON",
		})
		return
	}

	id := req.ID
	if id == "" {
		id = idgen.New()
	}
	builder := model.NewRequestBuilder[any](h.pusher.Defaults()).
		ID(id).
		Name(req.Name)
	if present {
		builder.Argument(arg)
	}

	if req.Priority != nil {
		builder.Priority(*req.Priority)
	}
	if req.MaxRetry != nil {
		builder.MaxRetry(*req.MaxRetry)
	}
	if req.KeepResult != nil {
		builder.KeepResult(*req.KeepResult)
	}
	if req.TimeoutMs != nil {
		builder.Timeout(time.Duration(*req.TimeoutMs) * time.Millisecond)
	}

	jobReq, err := builder.TryBuild()
	if err != nil {
		h.logger.Warn("Rejected job request",
			slog.String("job_name", req.Name),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := producer.Push(c.Request.Context(), h.pusher, jobReq); err != nil {
		h.logger.Error("Failed to enqueue job",
			slog.String("job_id", jobReq.ID()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.CreateJobResponse{
		ID:     jobReq.ID(),
		Name:   jobReq.Name(),
		Status: "queued",
	})
}

// GetJobResults handles GET /api/v1/jobs/:job_id/results
// Lists archived attempts of one job
func (h *JobHandler) GetJobResults(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id is required",
		})
		return
	}
	h.listResults(c, jobID)
}

// ListResults handles GET /api/v1/results
// Lists archived results across all jobs with cursor pagination
func (h *JobHandler) ListResults(c *gin.Context) {
	h.listResults(c, "")
}

func (h *JobHandler) listResults(c *gin.Context, jobID string) {
	if h.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Result archive is not configured",
		})
		return
	}

	var req dto.ListResultsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	afterSeq, err := DecodeResultCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	records, err := h.results.ListResults(c.Request.Context(), resultsink.ResultFilter{
		JobID:    jobID,
		PageSize: req.PageSize,
		AfterSeq: afterSeq,
	})
	if err != nil {
		h.logger.Error("Failed to list results", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list results",
		})
		return
	}

	hasMore := len(records) > req.PageSize
	if hasMore {
		records = records[:req.PageSize]
	}

	resp := dto.ListResultsResponse{Results: make([]dto.ResultDTO, len(records))}
	for i, rec := range records {
		resp.Results[i] = toResultDTO(rec)
	}
	if hasMore {
		resp.NextCursor = EncodeResultCursor(records[len(records)-1].Seq)
	}

	c.JSON(http.StatusOK, resp)
}

// decodeArgument turns a JSON argument into a value tree. Integral numbers
// become int64 so handlers can bind them to integer fields.
func decodeArgument(raw json.RawMessage) (any, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false, err
	}
	return normalizeNumbers(v), true, nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = normalizeNumbers(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeNumbers(t[k])
		}
		return t
	default:
		return v
	}
}

func toResultDTO(rec resultsink.Record) dto.ResultDTO {
	out := dto.ResultDTO{
		Seq:         rec.Seq,
		ID:          rec.JobID,
		Type:        rec.Type,
		FinishedAt:  rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		Message:     rec.Message,
		Reason:      rec.Reason,
		ShouldRetry: rec.ShouldRetry,
		RecordedAt:  rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
	if rec.Result.Valid {
		out.Result = json.RawMessage(rec.Result.String)
	}
	if rec.Error.Valid {
		out.Error = json.RawMessage(rec.Error.String)
	}
	return out
}
