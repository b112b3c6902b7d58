package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/querystudio/querystudio/internal/generator"
	"github.com/querystudio/querystudio/internal/pipeline"
	"github.com/querystudio/querystudio/internal/prompts"
	"github.com/querystudio/querystudio/internal/question"
	"github.com/querystudio/querystudio/internal/text2sql"
)

const maxRequestBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type generateRequest struct {
	Count int `json:"count" validate:"min=1,max=100"`
}

// Questions may be given as plain strings or {question, metadata} objects.
type questionsRequest struct {
	Questions []question.Question `json:"questions" validate:"required,min=1,max=100"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	columns := deps.TableColumns
	if len(columns) == 0 {
		columns = prompts.DefaultTableColumns()
	}
	response := map[string]any{
		"schema":        text2sql.GoldSchema,
		"table_columns": columns,
	}
	if deps.Tables != nil {
		tables, err := deps.Tables.ListTables(r.Context())
		if err != nil {
			writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_FETCH_FAILED", "failed to list warehouse tables", true, map[string]any{"details": err.Error()})
			return
		}
		response["tables"] = tables
	}
	writeJSON(w, http.StatusOK, response)
}

func handleGenerateQuestions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Generator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATOR_NOT_CONFIGURED", "question generation is not configured", false, nil)
		return
	}
	var req generateRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	questions, err := deps.Generator.GenerateNLQuestions(r.Context(), req.Count)
	if err != nil {
		writeModelError(r.Context(), w, "GENERATE_FAILED", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func handleOptimizeQuestions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Generator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATOR_NOT_CONFIGURED", "question optimization is not configured", false, nil)
		return
	}
	var req questionsRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	questions, err := deps.Generator.OptimizeQuery(r.Context(), req.Questions)
	if err != nil {
		writeModelError(r.Context(), w, "OPTIMIZE_FAILED", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func handleGenerateSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "text-to-SQL agent is not configured", false, nil)
		return
	}
	var req questionsRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": deps.Agent.GenerateSQLFromText(r.Context(), req.Questions)})
}

func handlePipelineRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "pipeline is not configured", false, nil)
		return
	}
	var req pipeline.Request
	if !decodeRequest(w, r, &req) {
		return
	}
	report, err := deps.Pipeline.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrExportDisabled) {
			writeError(r.Context(), w, http.StatusConflict, "EXPORT_DISABLED", err.Error(), false, nil)
			return
		}
		writeModelError(r.Context(), w, "PIPELINE_FAILED", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "request validation failed", false, map[string]any{"details": err.Error()})
		return false
	}
	return true
}

func writeModelError(ctx context.Context, w http.ResponseWriter, code string, err error) {
	details := map[string]any{"details": err.Error()}
	switch {
	case errors.Is(err, generator.ErrMalformedResponse):
		writeError(ctx, w, http.StatusBadGateway, "MODEL_RESPONSE_INVALID", "model returned a malformed response", true, details)
	case errors.Is(err, generator.ErrRetriesExhausted):
		writeError(ctx, w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "model call failed after retries", true, details)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(ctx, w, http.StatusGatewayTimeout, "REQUEST_TIMEOUT", "request was cancelled before completion", true, details)
	default:
		writeError(ctx, w, http.StatusInternalServerError, code, "request failed", false, details)
	}
}
