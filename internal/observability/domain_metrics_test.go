package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveModelCallCountsOutcome(t *testing.T) {
	before := testutil.ToFloat64(modelCallsTotal.WithLabelValues("unit_test", "error"))
	ObserveModelCall("unit_test", errors.New("boom"), 10*time.Millisecond)
	after := testutil.ToFloat64(modelCallsTotal.WithLabelValues("unit_test", "error"))
	if after-before != 1 {
		t.Fatalf("error calls delta = %v", after-before)
	}
}

func TestObserveAgentResultCountsStatus(t *testing.T) {
	before := testutil.ToFloat64(agentResultsTotal.WithLabelValues("timed_out"))
	ObserveAgentResult("timed_out", time.Second)
	after := testutil.ToFloat64(agentResultsTotal.WithLabelValues("timed_out"))
	if after-before != 1 {
		t.Fatalf("timed_out delta = %v", after-before)
	}
}

func TestAddGeneratedQuestionsIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(questionsGeneratedTotal)
	AddGeneratedQuestions(0)
	AddGeneratedQuestions(3)
	after := testutil.ToFloat64(questionsGeneratedTotal)
	if after-before != 3 {
		t.Fatalf("generated delta = %v", after-before)
	}
}
