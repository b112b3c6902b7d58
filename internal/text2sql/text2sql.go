// Package text2sql turns natural-language questions into SQL with a ReAct
// agent, records the agent's chain of thought, and samples the result.
package text2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/tmc/langchaingo/tools/sqldatabase"

	"github.com/querystudio/querystudio/internal/llm"
	"github.com/querystudio/querystudio/internal/observability"
	"github.com/querystudio/querystudio/internal/prompts"
	"github.com/querystudio/querystudio/internal/question"
	"github.com/querystudio/querystudio/internal/warehouse"
)

const GoldSchema = warehouse.DefaultSchema

const timeoutMessage = "Query input might be too complex for our implementation and handling it is not yet supported."

const (
	defaultDialect = "postgresql"
	defaultTopK    = 10
)

var (
	ErrNoSteps    = errors.New("agent returned no intermediate steps")
	ErrNoSQLQuery = errors.New("agent never executed a SQL query")
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusTimedOut  Status = "timed_out"
	StatusFailed    Status = "failed"
)

// Step is one entry of the chain of thought.
type Step struct {
	Action string `json:"action"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Result is produced for every question, whether or not the agent succeeded.
type Result struct {
	Input          string            `json:"input"`
	Status         Status            `json:"status"`
	SQLCode        string            `json:"sql_code,omitempty"`
	ChainOfThought []Step            `json:"chain_of_thought,omitempty"`
	Output         string            `json:"output,omitempty"`
	Data           *warehouse.Sample `json:"data,omitempty"`
	Error          string            `json:"error,omitempty"`
	ExceptionType  string            `json:"exception_type,omitempty"`
	Traceback      string            `json:"traceback,omitempty"`
}

// Sampler executes generated SQL and reports a bounded sample of its rows.
type Sampler interface {
	Sample(ctx context.Context, sqlText string) warehouse.Sample
}

type Option func(*Agent)

func WithTableColumns(columns prompts.TableColumns) Option {
	return func(a *Agent) {
		if len(columns) > 0 {
			a.tableColumns = columns
		}
	}
}

// WithTimeout bounds the agent run for each question.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		a.timeout = timeout
	}
}

func WithEnforceSchema(enabled bool) Option {
	return func(a *Agent) {
		a.enforceSchema = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		a.maxIterations = n
	}
}

func WithTemperature(temperature float64) Option {
	return func(a *Agent) {
		a.temperature = temperature
	}
}

func WithDialect(dialect string) Option {
	return func(a *Agent) {
		if dialect != "" {
			a.dialect = dialect
		}
	}
}

type Agent struct {
	runner        Runner
	sampler       Sampler
	tableColumns  prompts.TableColumns
	timeout       time.Duration
	enforceSchema bool
	logger        *slog.Logger

	maxIterations int
	temperature   float64
	dialect       string
}

func newAgent(opts []Option) *Agent {
	a := &Agent{
		tableColumns: prompts.DefaultTableColumns(),
		logger:       observability.Discard(),
		dialect:      defaultDialect,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// New builds an agent that drives model over the warehouse's SQL tools.
func New(ctx context.Context, model llm.ChatModel, wh *warehouse.Warehouse, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if wh == nil {
		return nil, fmt.Errorf("warehouse is required")
	}
	if err := wh.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	a := newAgent(opts)
	if err := a.tableColumns.Validate(GoldSchema); err != nil {
		return nil, err
	}
	db, err := sqldatabase.NewSQLDatabase(wh.Engine(a.dialect), nil)
	if err != nil {
		return nil, fmt.Errorf("load warehouse tables: %w", err)
	}
	a.runner = newExecutorRunner(
		llm.NewLangChain(model, a.temperature),
		Toolkit(db, model, a.temperature),
		runnerConfig{
			maxIterations: a.maxIterations,
			prefix:        prompts.SQLAgentPrefix(a.dialect, GoldSchema, defaultTopK),
		},
	)
	a.sampler = wh.Sampler().WithLogger(a.logger)
	return a, nil
}

// NewWithRunner builds an agent around an existing runner and sampler.
func NewWithRunner(runner Runner, sampler Sampler, opts ...Option) (*Agent, error) {
	if runner == nil {
		return nil, fmt.Errorf("agent runner is required")
	}
	if sampler == nil {
		return nil, fmt.Errorf("sampler is required")
	}
	a := newAgent(opts)
	if err := a.tableColumns.Validate(GoldSchema); err != nil {
		return nil, err
	}
	a.runner = runner
	a.sampler = sampler
	return a, nil
}

// GenerateSQLFromText processes questions one at a time and returns one
// Result per question in input order. Per-question failures are reported in
// the Result.
func (a *Agent) GenerateSQLFromText(ctx context.Context, questions []question.Question) []Result {
	results := make([]Result, 0, len(questions))
	for i, q := range questions {
		result := a.generateSQLAndChainOfThought(ctx, q.Question)
		a.logger.Info("processed question",
			"run_id", observability.RunIDFromContext(ctx),
			"index", i,
			"total", len(questions),
			"status", result.Status,
		)
		results = append(results, result)
	}
	return results
}

func (a *Agent) generateSQLAndChainOfThought(ctx context.Context, query string) (result Result) {
	start := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			result = failedResult(query, fmt.Errorf("panic: %v", recovered))
		}
		observability.ObserveAgentResult(string(result.Status), time.Since(start))
	}()

	runCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prompt, err := prompts.RenderSQLAgent(prompts.SQLAgentInput{
		Schema:       GoldSchema,
		TableColumns: a.tableColumns,
		Query:        query,
	})
	if err != nil {
		return failedResult(query, err)
	}

	a.logger.Debug("agent invoked", "query", query)
	trace, err := a.runner.Run(runCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return timedOutResult(query, err)
		}
		return failedResult(query, err)
	}

	steps, err := chainOfThought(prompt, trace)
	if err != nil {
		return failedResult(query, err)
	}
	a.logger.Debug("steps extracted", "query", query, "steps", len(steps))

	sqlCode, err := sqlFromSteps(steps)
	if err != nil {
		return failedResult(query, err)
	}
	if a.enforceSchema {
		sqlCode = EnsureGoldSchema(sqlCode)
	}
	a.logger.Debug("sql extracted", "query", query, "sql", sqlCode)

	data := a.sampler.Sample(runCtx, sqlCode)
	a.logger.Debug("sql executed", "query", query, "sample_failed", data.Failed())

	return Result{
		Input:          query,
		Status:         StatusSucceeded,
		SQLCode:        sqlCode,
		ChainOfThought: steps,
		Output:         trace.Output,
		Data:           &data,
	}
}

// chainOfThought wraps the agent's tool calls with a leading sql_generation
// step (prompt to first tool input) and a trailing answer_generation step
// (last observation to final answer).
func chainOfThought(prompt string, trace Trace) ([]Step, error) {
	if len(trace.Steps) == 0 {
		return nil, ErrNoSteps
	}

	steps := make([]Step, 0, len(trace.Steps)+2)
	steps = append(steps, Step{
		Action: "sql_generation",
		Input:  prompt,
		Output: trace.Steps[0].Action.ToolInput,
	})
	for _, step := range trace.Steps {
		steps = append(steps, Step{
			Action: step.Action.Tool,
			Input:  step.Action.ToolInput,
			Output: step.Observation,
		})
	}
	steps = append(steps, Step{
		Action: "answer_generation",
		Input:  trace.Steps[len(trace.Steps)-1].Observation,
		Output: trace.Output,
	})
	return steps, nil
}

// sqlFromSteps returns the input of the first sql_db_query call, cleaned the
// same way the query tool cleans it before executing.
func sqlFromSteps(steps []Step) (string, error) {
	for _, step := range steps {
		if step.Action == QueryToolName {
			return cleanToolInput(step.Input), nil
		}
	}
	return "", ErrNoSQLQuery
}

// EnsureGoldSchema qualifies the first FROM target with the gold schema when
// the statement does not mention the schema anywhere.
func EnsureGoldSchema(sqlCode string) string {
	if strings.Contains(sqlCode, " FROM ") && !strings.Contains(sqlCode, GoldSchema+".") {
		return strings.Replace(sqlCode, " FROM ", " FROM "+GoldSchema+".", 1)
	}
	return sqlCode
}

func timedOutResult(query string, err error) Result {
	return Result{
		Input:         query,
		Status:        StatusTimedOut,
		Error:         timeoutMessage + err.Error(),
		ExceptionType: warehouse.ExceptionType(err),
		Traceback:     string(debug.Stack()),
	}
}

func failedResult(query string, err error) Result {
	return Result{
		Input:         query,
		Status:        StatusFailed,
		Error:         err.Error(),
		ExceptionType: warehouse.ExceptionType(err),
		Traceback:     string(debug.Stack()),
	}
}
