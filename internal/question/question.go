// Package question holds the value object passed between the generator, the
// optimizer and the text-to-SQL agent.
package question

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
)

var ErrEmptyQuestion = errors.New("question text is required")

// Question pairs a natural-language question with free-form metadata that
// accumulates across the generate and optimize stages.
type Question struct {
	Question string         `json:"question"`
	Metadata map[string]any `json:"metadata"`
}

func New(text string, metadata map[string]any) (Question, error) {
	if strings.TrimSpace(text) == "" {
		return Question{}, ErrEmptyQuestion
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Question{Question: text, Metadata: metadata}, nil
}

// Clone returns a copy whose metadata map can be mutated independently.
func (q Question) Clone() Question {
	out := Question{Question: q.Question, Metadata: make(map[string]any, len(q.Metadata))}
	maps.Copy(out.Metadata, q.Metadata)
	return out
}

// UnmarshalJSON accepts either a bare JSON string or a
// {"question": ..., "metadata": {...}} object.
func (q *Question) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		parsed, err := New(text, nil)
		if err != nil {
			return err
		}
		*q = parsed
		return nil
	}

	var raw struct {
		Question string         `json:"question"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decode question: %w", err)
	}
	parsed, err := New(raw.Question, raw.Metadata)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// Source is anything a batch operation accepts as a question.
type Source interface {
	string | Question
}

// Normalize resolves a batch of plain strings or Questions into Questions.
// Every element must carry non-blank text.
func Normalize[S Source](items []S) ([]Question, error) {
	out := make([]Question, 0, len(items))
	for i, item := range items {
		var (
			q   Question
			err error
		)
		switch typed := any(item).(type) {
		case string:
			q, err = New(typed, nil)
		case Question:
			q, err = New(typed.Question, typed.Metadata)
		}
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// Texts returns the question strings in order.
func Texts(questions []Question) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = q.Question
	}
	return out
}
