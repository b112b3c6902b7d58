package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/querystudio/querystudio/internal/export"
	"github.com/querystudio/querystudio/internal/question"
	"github.com/querystudio/querystudio/internal/text2sql"
)

type fakeGenerator struct {
	optimizeCalls int
	err           error
}

func (f *fakeGenerator) GenerateNLQuestions(_ context.Context, n int) ([]question.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]question.Question, n)
	for i := range out {
		out[i] = question.Question{Question: "raw question", Metadata: map[string]any{"index": i}}
	}
	return out, nil
}

func (f *fakeGenerator) OptimizeQuery(_ context.Context, qs []question.Question) ([]question.Question, error) {
	f.optimizeCalls++
	out := make([]question.Question, len(qs))
	for i, q := range qs {
		out[i] = question.Question{Question: "optimized question", Metadata: map[string]any{"nl_question": q.Question}}
	}
	return out, nil
}

type fakeAgent struct {
	seen []question.Question
}

func (f *fakeAgent) GenerateSQLFromText(_ context.Context, qs []question.Question) []text2sql.Result {
	f.seen = qs
	out := make([]text2sql.Result, len(qs))
	for i, q := range qs {
		out[i] = text2sql.Result{Input: q.Question, Status: text2sql.StatusSucceeded}
	}
	return out
}

type fakeExporter struct {
	run export.Run
}

func (f *fakeExporter) Export(_ context.Context, run export.Run) (export.Manifest, error) {
	f.run = run
	return export.Manifest{RunID: run.ID, Key: "runs/x.parquet", Rows: int64(len(run.Records))}, nil
}

func TestRunGeneratesOptimizesAndExports(t *testing.T) {
	gen := &fakeGenerator{}
	agent := &fakeAgent{}
	exporter := &fakeExporter{}
	p, err := New(gen, agent, exporter, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := p.Run(context.Background(), Request{Count: 3, Optimize: true, Export: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Fatalf("RunID %q is not a uuid: %v", report.RunID, err)
	}
	if gen.optimizeCalls != 1 {
		t.Fatalf("optimize calls = %d", gen.optimizeCalls)
	}
	if len(agent.seen) != 3 || agent.seen[0].Question != "optimized question" {
		t.Fatalf("agent saw %+v", agent.seen)
	}
	if len(report.Results) != 3 || len(report.Questions) != 3 {
		t.Fatalf("report = %+v", report)
	}
	if report.Export == nil || report.Export.Rows != 3 {
		t.Fatalf("Export = %+v", report.Export)
	}
	if exporter.run.ID != report.RunID || exporter.run.Records[2].Result.Input != "optimized question" {
		t.Fatalf("exported run = %+v", exporter.run)
	}
}

func TestRunWithoutOptimizeOrExport(t *testing.T) {
	gen := &fakeGenerator{}
	agent := &fakeAgent{}
	p, _ := New(gen, agent, nil, nil)

	report, err := p.Run(context.Background(), Request{Count: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gen.optimizeCalls != 0 {
		t.Fatal("optimizer should not run")
	}
	if agent.seen[0].Question != "raw question" || report.Export != nil {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunRejectsExportWithoutExporter(t *testing.T) {
	p, _ := New(&fakeGenerator{}, &fakeAgent{}, nil, nil)
	if _, err := p.Run(context.Background(), Request{Count: 1, Export: true}); !errors.Is(err, ErrExportDisabled) {
		t.Fatalf("Run() error = %v, want ErrExportDisabled", err)
	}
}

func TestRunPropagatesGeneratorErrors(t *testing.T) {
	boom := errors.New("model down")
	p, _ := New(&fakeGenerator{err: boom}, &fakeAgent{}, nil, nil)
	if _, err := p.Run(context.Background(), Request{Count: 1}); !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := p.Run(context.Background(), Request{Count: 0}); err == nil {
		t.Fatal("expected error for zero count")
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	if _, err := New(nil, &fakeAgent{}, nil, nil); err == nil {
		t.Fatal("expected error for nil generator")
	}
	if _, err := New(&fakeGenerator{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil agent")
	}
}
