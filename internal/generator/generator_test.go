package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/querystudio/querystudio/internal/llm"
	"github.com/querystudio/querystudio/internal/prompts"
	"github.com/querystudio/querystudio/internal/question"
)

type scriptedModel struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedModel) Chat(_ context.Context, req llm.Request) (llm.Response, error) {
	call := len(s.prompts)
	s.prompts = append(s.prompts, req.Messages[0].Content)
	if call < len(s.errs) && s.errs[call] != nil {
		return llm.Response{}, s.errs[call]
	}
	if len(s.replies) == 0 {
		return llm.Response{}, errors.New("no scripted reply")
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return llm.Response{Content: reply}, nil
}

const threeQuestions = `{"questions": [
	{"question": "Which sales channel drives the most revenue?", "business_context": "channel mix", "role": "Owner"},
	{"question": "How many orders are pending fulfillment?", "business_context": "ops backlog", "role": "Analyst"},
	{"question": "What is the average order value per day?", "business_context": "pricing", "role": "Owner"}
]}`

func TestNewRequiresModel(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil model")
	}
}

func TestGenerateNLQuestionsReturnsOnePerElement(t *testing.T) {
	model := &scriptedModel{replies: []string{threeQuestions}}
	gen, err := New(model)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	gen.Fit("", "")

	got, err := gen.GenerateNLQuestions(context.Background(), 3)
	if err != nil {
		t.Fatalf("GenerateNLQuestions() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, q := range got {
		if q.Question == "" {
			t.Fatalf("empty question text: %+v", q)
		}
		if _, ok := q.Metadata["question"]; ok {
			t.Fatalf("metadata must not contain question: %+v", q.Metadata)
		}
		if len(q.Metadata) != 2 || q.Metadata["business_context"] == nil || q.Metadata["role"] == nil {
			t.Fatalf("metadata = %+v", q.Metadata)
		}
	}
	if got[1].Metadata["role"] != "Analyst" {
		t.Fatalf("order not preserved: %+v", got)
	}
	if !strings.Contains(model.prompts[0], "3") || !strings.Contains(model.prompts[0], strings.TrimSpace(prompts.DefaultTableSchema)[:20]) {
		t.Fatalf("prompt does not carry count and schema: %q", model.prompts[0])
	}
}

func TestGenerateNLQuestionsUnwrapsCodeFence(t *testing.T) {
	model := &scriptedModel{replies: []string{"```json\n" + threeQuestions + "\n```"}}
	gen, _ := New(model)
	got, err := gen.GenerateNLQuestions(context.Background(), 3)
	if err != nil {
		t.Fatalf("GenerateNLQuestions() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
}

func TestGenerateNLQuestionsRejectsInvalidCount(t *testing.T) {
	gen, _ := New(&scriptedModel{replies: []string{threeQuestions}})
	if _, err := gen.GenerateNLQuestions(context.Background(), 0); err == nil {
		t.Fatal("expected error for n=0")
	}
}

func TestFitUsesProvidedContext(t *testing.T) {
	model := &scriptedModel{replies: []string{threeQuestions}}
	gen, _ := New(model)
	gen.Fit("custom descriptions", "custom schema")
	if _, err := gen.GenerateNLQuestions(context.Background(), 3); err != nil {
		t.Fatalf("GenerateNLQuestions() error = %v", err)
	}
	if !strings.Contains(model.prompts[0], "custom descriptions") || !strings.Contains(model.prompts[0], "custom schema") {
		t.Fatalf("prompt = %q", model.prompts[0])
	}
}

func TestFitFallsBackPerField(t *testing.T) {
	gen, _ := New(&scriptedModel{})
	gen.Fit("custom descriptions", "")
	descriptions, schema := gen.schemaContext()
	if descriptions != "custom descriptions" {
		t.Fatalf("descriptions = %q", descriptions)
	}
	if schema != prompts.DefaultTableSchema {
		t.Fatal("schema should fall back to default")
	}
}

func TestMalformedResponsesAreNotRetried(t *testing.T) {
	replies := []string{
		"not json",
		`{"answers": []}`,
		`{"questions": null}`,
		`{"questions": [{"business_context": "x"}]}`,
		`{"questions": [{"question": 7}]}`,
		`{"questions": [{"question": "   "}]}`,
	}
	for _, reply := range replies {
		model := &scriptedModel{replies: []string{reply}}
		gen, _ := New(model, WithMaxRetries(3))
		_, err := gen.GenerateNLQuestions(context.Background(), 1)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("reply %q: error = %v, want ErrMalformedResponse", reply, err)
		}
		if len(model.prompts) != 1 {
			t.Fatalf("reply %q: attempts = %d, want 1", reply, len(model.prompts))
		}
	}
}

func TestEmptyQuestionBatchIsNotAnError(t *testing.T) {
	model := &scriptedModel{replies: []string{`{"questions": []}`}}
	gen, _ := New(model, WithMaxRetries(3))

	got, err := gen.GenerateNLQuestions(context.Background(), 2)
	if err != nil {
		t.Fatalf("GenerateNLQuestions() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
	if len(model.prompts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(model.prompts))
	}
}

func TestRetrySucceedsAfterMaxRetriesFailures(t *testing.T) {
	boom := errors.New("overloaded")
	model := &scriptedModel{
		errs:    []error{boom, boom, boom},
		replies: []string{threeQuestions},
	}
	gen, _ := New(model, WithMaxRetries(3))
	got, err := gen.GenerateNLQuestions(context.Background(), 3)
	if err != nil {
		t.Fatalf("GenerateNLQuestions() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if len(model.prompts) != 4 {
		t.Fatalf("attempts = %d, want 4", len(model.prompts))
	}
}

func TestRetryExhaustionAfterExactlyMaxRetriesPlusOne(t *testing.T) {
	boom := errors.New("overloaded")
	model := &scriptedModel{errs: []error{boom, boom, boom, boom, boom, boom}}
	gen, _ := New(model, WithMaxRetries(2))
	_, err := gen.GenerateNLQuestions(context.Background(), 3)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("error = %v, want ErrRetriesExhausted", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped cause", err)
	}
	if len(model.prompts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(model.prompts))
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	model := &scriptedModel{replies: []string{threeQuestions}}
	gen, _ := New(model)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.GenerateNLQuestions(ctx, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(model.prompts) != 0 {
		t.Fatalf("attempts = %d, want 0", len(model.prompts))
	}
}

func TestOptimizeQueryPreservesOrderAndMetadata(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{"optimized_question": "Total revenue by channel?", "reasoning": "aggregate", "role": "analyst"}`,
		`{"optimized_question": "Count of pending orders?"}`,
	}}
	gen, _ := New(model)
	first, _ := question.New("Which channel makes most money?", map[string]any{"role": "Owner"})
	inputs := []question.Question{first, {Question: "How many orders wait?"}}

	got, err := gen.OptimizeQuery(context.Background(), inputs)
	if err != nil {
		t.Fatalf("OptimizeQuery() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Question != "Total revenue by channel?" || got[1].Question != "Count of pending orders?" {
		t.Fatalf("order not preserved: %+v", got)
	}
	if got[0].Metadata["nl_question"] != "Which channel makes most money?" {
		t.Fatalf("nl_question = %v", got[0].Metadata["nl_question"])
	}
	if got[0].Metadata["role"] != "Owner" {
		t.Fatalf("input metadata should win, role = %v", got[0].Metadata["role"])
	}
	if got[0].Metadata["reasoning"] != "aggregate" {
		t.Fatalf("extra response fields missing: %+v", got[0].Metadata)
	}
	if got[1].Metadata["nl_question"] != "How many orders wait?" {
		t.Fatalf("nl_question = %v", got[1].Metadata["nl_question"])
	}
	if _, ok := got[0].Metadata["optimized_question"]; ok {
		t.Fatal("optimized_question must not be copied into metadata")
	}
	if !strings.Contains(model.prompts[1], "How many orders wait?") {
		t.Fatalf("prompt = %q", model.prompts[1])
	}
}

func TestOptimizeQueryMalformedResponse(t *testing.T) {
	model := &scriptedModel{replies: []string{`{"question": "wrong key"}`}}
	gen, _ := New(model)
	_, err := gen.OptimizeQuery(context.Background(), []question.Question{{Question: "q"}})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
}
