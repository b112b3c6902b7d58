// Package api exposes question generation, optimization and text-to-SQL over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querystudio/querystudio/internal/config"
	"github.com/querystudio/querystudio/internal/observability"
	"github.com/querystudio/querystudio/internal/pipeline"
	"github.com/querystudio/querystudio/internal/prompts"
	"github.com/querystudio/querystudio/internal/question"
	"github.com/querystudio/querystudio/internal/text2sql"
)

type ReadinessCheck func(ctx context.Context) error

type QuestionService interface {
	GenerateNLQuestions(ctx context.Context, n int) ([]question.Question, error)
	OptimizeQuery(ctx context.Context, questions []question.Question) ([]question.Question, error)
}

type SQLService interface {
	GenerateSQLFromText(ctx context.Context, questions []question.Question) []text2sql.Result
}

type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Report, error)
}

type TableLister interface {
	ListTables(ctx context.Context) ([]string, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Generator         QuestionService
	Agent             SQLService
	Pipeline          PipelineRunner
	Tables            TableLister
	TableColumns      prompts.TableColumns
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protectedRoutes := map[string]http.HandlerFunc{
		"GET /v1/schema": func(w http.ResponseWriter, r *http.Request) {
			handleSchema(deps, w, r)
		},
		"POST /v1/questions/generate": func(w http.ResponseWriter, r *http.Request) {
			handleGenerateQuestions(deps, w, r)
		},
		"POST /v1/questions/optimize": func(w http.ResponseWriter, r *http.Request) {
			handleOptimizeQuestions(deps, w, r)
		},
		"POST /v1/sql": func(w http.ResponseWriter, r *http.Request) {
			handleGenerateSQL(deps, w, r)
		},
		"POST /v1/pipeline/run": func(w http.ResponseWriter, r *http.Request) {
			handlePipelineRun(deps, w, r)
		},
	}

	protected := http.NewServeMux()
	for pattern, handler := range protectedRoutes {
		protected.HandleFunc(pattern, handler)
	}

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	for pattern := range protectedRoutes {
		mux.Handle(pattern, protectedHandler)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// CheckModelConfig fails when no chat model credentials are configured.
func CheckModelConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Model.Name == "" || cfg.Model.APIKey == "" {
			return errors.New("model name and API key are not configured")
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
