package text2sql

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/tools"
)

const (
	inputKey             = "input"
	outputKey            = "output"
	intermediateStepsKey = "intermediateSteps"
)

// Trace is the final answer of an agent run together with every tool call it
// made on the way.
type Trace struct {
	Output string
	Steps  []schema.AgentStep
}

// Runner executes the SQL agent for one prompt.
type Runner interface {
	Run(ctx context.Context, prompt string) (Trace, error)
}

type executorRunner struct {
	executor *agents.Executor
}

type runnerConfig struct {
	maxIterations int
	prefix        string
}

// newExecutorRunner builds a zero-shot ReAct agent over tools that returns its
// intermediate steps and feeds unparsable model output back as an observation.
func newExecutorRunner(model llms.Model, toolset []tools.Tool, cfg runnerConfig) *executorRunner {
	opts := []agents.Option{
		agents.WithReturnIntermediateSteps(),
		agents.WithParserErrorHandler(agents.NewParserErrorHandler(nil)),
	}
	if cfg.maxIterations > 0 {
		opts = append(opts, agents.WithMaxIterations(cfg.maxIterations))
	}
	if cfg.prefix != "" {
		opts = append(opts, agents.WithPromptPrefix(cfg.prefix))
	}
	agent := agents.NewOneShotAgent(model, toolset, opts...)
	return &executorRunner{executor: agents.NewExecutor(agent, opts...)}
}

func (r *executorRunner) Run(ctx context.Context, prompt string) (Trace, error) {
	outputs, err := chains.Call(ctx, r.executor, map[string]any{inputKey: prompt})
	if err != nil {
		return Trace{}, err
	}

	var trace Trace
	if output, ok := outputs[outputKey].(string); ok {
		trace.Output = output
	}
	if raw, ok := outputs[intermediateStepsKey]; ok {
		steps, ok := raw.([]schema.AgentStep)
		if !ok {
			return Trace{}, fmt.Errorf("unexpected intermediate steps type %T", raw)
		}
		trace.Steps = steps
	}
	return trace, nil
}
