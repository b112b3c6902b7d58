// Package generator produces natural-language business questions about the
// gold schema and rephrases them into SQL-friendly form.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/querystudio/querystudio/internal/llm"
	"github.com/querystudio/querystudio/internal/observability"
	"github.com/querystudio/querystudio/internal/prompts"
	"github.com/querystudio/querystudio/internal/question"
)

const DefaultMaxRetries = 3

const (
	operationGenerate = "generate_questions"
	operationOptimize = "optimize_question"
)

var (
	ErrRetriesExhausted  = errors.New("model call retries exhausted")
	ErrMalformedResponse = errors.New("malformed model response")
)

type Option func(*Generator)

func WithMaxRetries(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithTemperature(temperature float64) Option {
	return func(g *Generator) {
		g.temperature = temperature
	}
}

type Generator struct {
	model       llm.ChatModel
	logger      *slog.Logger
	maxRetries  int
	temperature float64

	mu                sync.RWMutex
	tableDescriptions string
	tableSchema       string
}

func New(model llm.ChatModel, opts ...Option) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	g := &Generator{
		model:             model,
		logger:            observability.Discard(),
		maxRetries:        DefaultMaxRetries,
		tableDescriptions: prompts.DefaultTableDescriptions,
		tableSchema:       prompts.DefaultTableSchema,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Fit sets the schema context used by later prompts. An empty argument falls
// back to the built-in default for that field.
func (g *Generator) Fit(tableDescriptions, tableSchema string) {
	if tableDescriptions == "" || tableSchema == "" {
		g.logger.Warn("no table descriptions or schema provided, using default values",
			"descriptions_provided", tableDescriptions != "",
			"schema_provided", tableSchema != "",
		)
	}
	if tableDescriptions == "" {
		tableDescriptions = prompts.DefaultTableDescriptions
	}
	if tableSchema == "" {
		tableSchema = prompts.DefaultTableSchema
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.tableDescriptions = tableDescriptions
	g.tableSchema = tableSchema
}

func (g *Generator) MaxRetries() int {
	return g.maxRetries
}

func (g *Generator) schemaContext() (string, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tableDescriptions, g.tableSchema
}

// GenerateNLQuestions asks the model for n business questions over the fitted
// schema.
func (g *Generator) GenerateNLQuestions(ctx context.Context, n int) ([]question.Question, error) {
	descriptions, schema := g.schemaContext()
	prompt, err := prompts.RenderQuestionGeneration(prompts.QuestionGenerationInput{
		TableDescription: descriptions,
		TableSchema:      schema,
		NumQuestions:     n,
	})
	if err != nil {
		return nil, err
	}

	raw, err := g.generateWithRetry(ctx, operationGenerate, prompt)
	if err != nil {
		return nil, err
	}
	batch, err := decodeQuestionBatch(raw)
	if err != nil {
		return nil, err
	}

	out := make([]question.Question, 0, len(batch.Questions))
	for i, item := range batch.Questions {
		q, err := question.New(item.Question, item.Extra)
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrMalformedResponse, i, err)
		}
		out = append(out, q)
	}
	if len(out) != n {
		g.logger.Warn("model returned a different number of questions than requested",
			"requested", n,
			"returned", len(out),
		)
	}
	observability.AddGeneratedQuestions(len(out))
	return out, nil
}

// OptimizeQuery rephrases each question in order. The result keeps the
// original text under nl_question and carries the input metadata forward.
func (g *Generator) OptimizeQuery(ctx context.Context, questions []question.Question) ([]question.Question, error) {
	descriptions, schema := g.schemaContext()
	out := make([]question.Question, 0, len(questions))
	for i, in := range questions {
		prompt, err := prompts.RenderQueryOptimization(prompts.QueryOptimizationInput{
			TableDescriptions: descriptions,
			TableSchema:       schema,
			Question:          in.Question,
		})
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}

		raw, err := g.generateWithRetry(ctx, operationOptimize, prompt)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		optimized, err := decodeOptimizedQuestion(raw)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}

		metadata := make(map[string]any, len(optimized.Extra)+1+len(in.Metadata))
		for key, value := range optimized.Extra {
			metadata[key] = value
		}
		metadata["nl_question"] = in.Question
		for key, value := range in.Metadata {
			metadata[key] = value
		}

		q, err := question.New(optimized.OptimizedQuestion, metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrMalformedResponse, i, err)
		}
		out = append(out, q)
		g.logger.Debug("optimized question", "index", i, "total", len(questions))
	}
	return out, nil
}

// generateWithRetry calls the model up to maxRetries+1 times and returns the
// first successful reply with any code fence removed.
func (g *Generator) generateWithRetry(ctx context.Context, operation, prompt string) (string, error) {
	attempts := g.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		reply, err := llm.Complete(ctx, g.model, prompt, g.temperature)
		observability.ObserveModelCall(operation, err, time.Since(start))
		if err == nil {
			return llm.StripCodeFence(reply), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", operation, ctxErr)
		}

		lastErr = err
		g.logger.Warn("model call failed",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if attempt < attempts {
			observability.IncrementModelRetry(operation)
		}
	}
	return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, operation, attempts, lastErr)
}
