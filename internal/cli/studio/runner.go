// Package studio implements the querystudio command line.
package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/querystudio/querystudio/internal/pipeline"
	"github.com/querystudio/querystudio/internal/question"
	"github.com/querystudio/querystudio/internal/text2sql"
)

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

type Services struct {
	Generator QuestionService
	Agent     SQLService
	Pipeline  PipelineRunner
}

// Factory builds the services for one command invocation. The returned close
// function is called once the command finishes.
type Factory func(ctx context.Context) (Services, func() error, error)

type Options struct {
	Build  Factory
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

// Run executes the command line and returns the process exit code: 0 on
// success, 1 on runtime failure and 2 on usage errors.
func Run(ctx context.Context, args []string, opts Options) int {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}

	r := &runner{build: opts.Build, stdin: stdin, stdout: stdout}
	app := r.app()
	app.Writer = stdout
	app.ErrWriter = stderr

	err := app.RunContext(ctx, append([]string{app.Name}, args...))
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	var usage usageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

type runner struct {
	build  Factory
	stdin  io.Reader
	stdout io.Writer
}

func (r *runner) app() *cli.App {
	fileFlag := &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "read a JSON array of questions from `PATH` (- for stdin)",
	}

	return &cli.App{
		Name:            "querystudio",
		Usage:           "Generate business questions and answer them with SQL",
		HideHelpCommand: true,
		ExitErrHandler:  func(*cli.Context, error) {},
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return usageError{err: err}
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return usageError{err: fmt.Errorf("unknown command %q", c.Args().First())}
			}
			_ = cli.ShowAppHelp(c)
			return usageError{err: errors.New("a command is required")}
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "generate natural-language business questions",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 5, Usage: "number of questions"},
				},
				OnUsageError: commandUsageError,
				Action:       r.generate,
			},
			{
				Name:         "optimize",
				Usage:        "rewrite questions for SQL generation",
				ArgsUsage:    "[question...]",
				Flags:        []cli.Flag{fileFlag},
				OnUsageError: commandUsageError,
				Action:       r.optimize,
			},
			{
				Name:         "sql",
				Usage:        "answer questions with SQL and a data sample",
				ArgsUsage:    "[question...]",
				Flags:        []cli.Flag{fileFlag},
				OnUsageError: commandUsageError,
				Action:       r.sql,
			},
			{
				Name:  "pipeline",
				Usage: "generate, optionally optimize, and answer questions in one run",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 5, Usage: "number of questions"},
					&cli.BoolFlag{Name: "optimize", Usage: "optimize questions before SQL generation"},
					&cli.BoolFlag{Name: "export", Usage: "export results as Parquet to the object store"},
				},
				OnUsageError: commandUsageError,
				Action:       r.runPipeline,
			},
		},
	}
}

func commandUsageError(_ *cli.Context, err error, _ bool) error {
	return usageError{err: err}
}

func (r *runner) generate(c *cli.Context) error {
	count := c.Int("count")
	if count < 1 {
		return usageError{err: fmt.Errorf("count must be >= 1")}
	}
	return r.withServices(c.Context, func(svc Services) error {
		if svc.Generator == nil {
			return errors.New("question generator is not configured")
		}
		questions, err := svc.Generator.GenerateNLQuestions(c.Context, count)
		if err != nil {
			return err
		}
		return r.print(questions)
	})
}

func (r *runner) optimize(c *cli.Context) error {
	questions, err := r.readQuestions(c)
	if err != nil {
		return err
	}
	return r.withServices(c.Context, func(svc Services) error {
		if svc.Generator == nil {
			return errors.New("question generator is not configured")
		}
		optimized, err := svc.Generator.OptimizeQuery(c.Context, questions)
		if err != nil {
			return err
		}
		return r.print(optimized)
	})
}

func (r *runner) sql(c *cli.Context) error {
	questions, err := r.readQuestions(c)
	if err != nil {
		return err
	}
	return r.withServices(c.Context, func(svc Services) error {
		if svc.Agent == nil {
			return errors.New("sql agent is not configured")
		}
		return r.print(svc.Agent.GenerateSQLFromText(c.Context, questions))
	})
}

func (r *runner) runPipeline(c *cli.Context) error {
	req := pipeline.Request{
		Count:    c.Int("count"),
		Optimize: c.Bool("optimize"),
		Export:   c.Bool("export"),
	}
	if req.Count < 1 {
		return usageError{err: fmt.Errorf("count must be >= 1")}
	}
	return r.withServices(c.Context, func(svc Services) error {
		if svc.Pipeline == nil {
			return errors.New("pipeline is not configured")
		}
		report, err := svc.Pipeline.Run(c.Context, req)
		if err != nil {
			return err
		}
		return r.print(report)
	})
}

func (r *runner) withServices(ctx context.Context, fn func(Services) error) (err error) {
	if r.build == nil {
		return errors.New("no service factory configured")
	}
	svc, closeFn, err := r.build(ctx)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer func() {
			if closeErr := closeFn(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
	}
	return fn(svc)
}

// readQuestions takes questions from positional arguments or, with --file, a
// JSON array of strings and {question, metadata} objects.
func (r *runner) readQuestions(c *cli.Context) ([]question.Question, error) {
	path := c.String("file")
	if path == "" {
		if c.NArg() == 0 {
			return nil, usageError{err: errors.New("at least one question or --file is required")}
		}
		return question.Normalize(c.Args().Slice())
	}
	if c.NArg() > 0 {
		return nil, usageError{err: errors.New("questions cannot be given both as arguments and --file")}
	}

	var src io.Reader = r.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open questions file: %w", err)
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	var questions []question.Question
	if err := json.NewDecoder(src).Decode(&questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, usageError{err: errors.New("questions file is empty")}
	}
	return questions, nil
}

func (r *runner) print(payload any) error {
	formatted, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(r.stdout, string(formatted))
	return err
}
