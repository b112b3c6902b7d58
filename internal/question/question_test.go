package question

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewRejectsBlankText(t *testing.T) {
	if _, err := New("   ", nil); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("New() error = %v, want ErrEmptyQuestion", err)
	}
}

func TestNewInitialisesMetadata(t *testing.T) {
	q, err := New("How many orders?", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if q.Metadata == nil {
		t.Fatal("expected non-nil metadata")
	}
}

func TestNormalizeStrings(t *testing.T) {
	got, err := Normalize([]string{"a?", "b?"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(got) != 2 || got[0].Question != "a?" || got[1].Question != "b?" {
		t.Fatalf("Normalize() = %+v", got)
	}
}

func TestNormalizeQuestionsKeepsMetadata(t *testing.T) {
	got, err := Normalize([]Question{{Question: "a?", Metadata: map[string]any{"role": "Owner"}}})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got[0].Metadata["role"] != "Owner" {
		t.Fatalf("metadata = %#v", got[0].Metadata)
	}
}

func TestNormalizeRejectsEmptyElement(t *testing.T) {
	if _, err := Normalize([]string{"ok", ""}); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("Normalize() error = %v", err)
	}
}

func TestUnmarshalAcceptsStringOrObject(t *testing.T) {
	var items []Question
	body := `["Which city orders most?", {"question": "Top products?", "metadata": {"role": "Analyst"}}]`
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Question != "Which city orders most?" || len(items[0].Metadata) != 0 {
		t.Fatalf("items[0] = %+v", items[0])
	}
	if items[1].Metadata["role"] != "Analyst" {
		t.Fatalf("items[1] = %+v", items[1])
	}
}

func TestUnmarshalRejectsEmptyQuestion(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"question": ""}`), &q); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	q := Question{Question: "a?", Metadata: map[string]any{"k": 1}}
	c := q.Clone()
	c.Metadata["k"] = 2
	if q.Metadata["k"] != 1 {
		t.Fatal("Clone() shares metadata map")
	}
}
