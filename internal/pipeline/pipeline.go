// Package pipeline chains question generation, optimization and SQL
// generation into a single run, optionally exporting the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/querystudio/querystudio/internal/export"
	"github.com/querystudio/querystudio/internal/observability"
	"github.com/querystudio/querystudio/internal/question"
	"github.com/querystudio/querystudio/internal/text2sql"
)

var ErrExportDisabled = errors.New("export is not configured")

type QuestionGenerator interface {
	GenerateNLQuestions(ctx context.Context, n int) ([]question.Question, error)
	OptimizeQuery(ctx context.Context, questions []question.Question) ([]question.Question, error)
}

type SQLAgent interface {
	GenerateSQLFromText(ctx context.Context, questions []question.Question) []text2sql.Result
}

type Exporter interface {
	Export(ctx context.Context, run export.Run) (export.Manifest, error)
}

type Request struct {
	Count    int  `json:"count" validate:"min=1,max=100"`
	Optimize bool `json:"optimize"`
	Export   bool `json:"export"`
}

type Report struct {
	RunID     string              `json:"run_id"`
	StartedAt time.Time           `json:"started_at"`
	Duration  string              `json:"duration"`
	Questions []question.Question `json:"questions"`
	Results   []text2sql.Result   `json:"results"`
	Export    *export.Manifest    `json:"export,omitempty"`
}

type Pipeline struct {
	generator QuestionGenerator
	agent     SQLAgent
	exporter  Exporter
	logger    *slog.Logger
	now       func() time.Time
}

// New wires a pipeline. exporter may be nil, in which case export requests
// fail with ErrExportDisabled.
func New(generator QuestionGenerator, agent SQLAgent, exporter Exporter, logger *slog.Logger) (*Pipeline, error) {
	if generator == nil {
		return nil, fmt.Errorf("question generator is required")
	}
	if agent == nil {
		return nil, fmt.Errorf("sql agent is required")
	}
	if logger == nil {
		logger = observability.Discard()
	}
	return &Pipeline{generator: generator, agent: agent, exporter: exporter, logger: logger, now: time.Now}, nil
}

func (p *Pipeline) Run(ctx context.Context, req Request) (Report, error) {
	if req.Count < 1 {
		return Report{}, fmt.Errorf("count must be >= 1")
	}
	if req.Export && p.exporter == nil {
		return Report{}, ErrExportDisabled
	}

	report := Report{RunID: uuid.NewString(), StartedAt: p.now().UTC()}
	ctx = observability.ContextWithRunID(ctx, report.RunID)
	logger := p.logger.With("run_id", report.RunID)

	questions, err := p.generator.GenerateNLQuestions(ctx, req.Count)
	if err != nil {
		return Report{}, fmt.Errorf("generate questions: %w", err)
	}
	logger.Info("questions generated", "count", len(questions))

	if req.Optimize {
		questions, err = p.generator.OptimizeQuery(ctx, questions)
		if err != nil {
			return Report{}, fmt.Errorf("optimize questions: %w", err)
		}
		logger.Info("questions optimized", "count", len(questions))
	}
	report.Questions = questions
	report.Results = p.agent.GenerateSQLFromText(ctx, questions)

	if req.Export {
		records := make([]export.Record, len(questions))
		for i := range questions {
			records[i] = export.Record{Question: questions[i], Result: report.Results[i]}
		}
		manifest, err := p.exporter.Export(ctx, export.Run{ID: report.RunID, StartedAt: report.StartedAt, Records: records})
		if err != nil {
			return Report{}, fmt.Errorf("export run: %w", err)
		}
		report.Export = &manifest
	}

	report.Duration = p.now().UTC().Sub(report.StartedAt).String()
	logger.Info("pipeline run finished", "results", len(report.Results), "duration", report.Duration)
	return report, nil
}
