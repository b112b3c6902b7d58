package generator

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// An empty questions array is a valid batch; a missing key is not.
type questionBatch struct {
	Questions []generatedQuestion `json:"questions" validate:"dive"`
}

type generatedQuestion struct {
	Question string `validate:"required"`
	// Extra holds every other field of the element, typically
	// business_context and role.
	Extra map[string]any
}

func (q *generatedQuestion) UnmarshalJSON(data []byte) error {
	text, extra, err := splitField(data, "question")
	if err != nil {
		return err
	}
	q.Question = text
	q.Extra = extra
	return nil
}

type optimizedQuestion struct {
	OptimizedQuestion string `validate:"required"`
	Extra             map[string]any
}

func (q *optimizedQuestion) UnmarshalJSON(data []byte) error {
	text, extra, err := splitField(data, "optimized_question")
	if err != nil {
		return err
	}
	q.OptimizedQuestion = text
	q.Extra = extra
	return nil
}

// splitField decodes a JSON object, removes the string field key and returns
// it alongside the remaining fields.
func splitField(data []byte, key string) (string, map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, err
	}
	if fields == nil {
		return "", nil, fmt.Errorf("expected a JSON object")
	}
	value, ok := fields[key]
	if !ok {
		return "", nil, fmt.Errorf("missing %q", key)
	}
	text, ok := value.(string)
	if !ok {
		return "", nil, fmt.Errorf("%q must be a string, got %T", key, value)
	}
	delete(fields, key)
	return text, fields, nil
}

func decodeQuestionBatch(raw string) (questionBatch, error) {
	var batch questionBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return questionBatch{}, fmt.Errorf("%w: decode questions: %v", ErrMalformedResponse, err)
	}
	if batch.Questions == nil {
		return questionBatch{}, fmt.Errorf("%w: missing questions", ErrMalformedResponse)
	}
	if err := validate.Struct(batch); err != nil {
		return questionBatch{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return batch, nil
}

func decodeOptimizedQuestion(raw string) (optimizedQuestion, error) {
	var out optimizedQuestion
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return optimizedQuestion{}, fmt.Errorf("%w: decode optimized question: %v", ErrMalformedResponse, err)
	}
	if err := validate.Struct(out); err != nil {
		return optimizedQuestion{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}
