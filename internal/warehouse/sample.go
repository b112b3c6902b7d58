package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/marcboeker/go-duckdb/v2"

	"github.com/querystudio/querystudio/internal/observability"
)

// Sample is the result of executing generated SQL. It encodes as a list of
// records, as {} when the query produced no rows, or as an error object.
type Sample struct {
	Columns []string
	Records []map[string]any
	Err     *SampleError
}

type SampleError struct {
	Message       string `json:"error"`
	ExceptionType string `json:"exception_type"`
	Input         string `json:"input"`
	Traceback     string `json:"traceback"`
}

func (s Sample) Failed() bool {
	return s.Err != nil
}

func (s Sample) Empty() bool {
	return s.Err == nil && len(s.Records) == 0
}

func (s Sample) MarshalJSON() ([]byte, error) {
	switch {
	case s.Err != nil:
		return json.Marshal(s.Err)
	case len(s.Records) == 0:
		return []byte("{}"), nil
	default:
		return json.Marshal(s.Records)
	}
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err == nil {
		*s = Sample{Records: records}
		return nil
	}
	var sampleErr SampleError
	if err := json.Unmarshal(data, &sampleErr); err != nil {
		return fmt.Errorf("decode sample: %w", err)
	}
	if sampleErr.Message == "" {
		*s = Sample{}
		return nil
	}
	*s = Sample{Err: &sampleErr}
	return nil
}

type Sampler struct {
	db     *sql.DB
	schema string
	limit  int
	logger *slog.Logger
}

func NewSampler(db *sql.DB, schema string) *Sampler {
	if schema == "" {
		schema = DefaultSchema
	}
	return &Sampler{db: db, schema: schema, limit: DefaultSampleLimit, logger: observability.Discard()}
}

func (s *Sampler) WithLogger(logger *slog.Logger) *Sampler {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Sample executes sqlText with the search path set to the warehouse schema
// and returns at most DefaultSampleLimit rows. Failures are reported inside
// the returned Sample.
func (s *Sampler) Sample(ctx context.Context, sqlText string) (sample Sample) {
	defer func() {
		if recovered := recover(); recovered != nil {
			sample = errorSample(fmt.Errorf("panic: %v", recovered), sqlText)
		}
		observability.ObserveSampleExecution(sample.Failed())
	}()

	err := withSchema(ctx, s.db, s.schema, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, sqlText)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		columns, err := rows.Columns()
		if err != nil {
			return err
		}
		sample.Columns = columns
		if len(columns) == 0 {
			return nil
		}

		for len(sample.Records) < s.limit && rows.Next() {
			values := make([]any, len(columns))
			dest := make([]any, len(columns))
			for i := range values {
				dest[i] = &values[i]
			}
			if err := rows.Scan(dest...); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			record := make(map[string]any, len(columns))
			for i, value := range normalizeValues(values) {
				record[columns[i]] = value
			}
			sample.Records = append(sample.Records, record)
		}
		return rows.Err()
	})
	if err != nil {
		s.logger.Debug("sample query failed", "error", err)
		return errorSample(err, sqlText)
	}
	return sample
}

func errorSample(err error, input string) Sample {
	return Sample{Err: &SampleError{
		Message:       err.Error(),
		ExceptionType: ExceptionType(err),
		Input:         input,
		Traceback:     string(debug.Stack()),
	}}
}

// ExceptionType names the concrete type of the innermost wrapped error.
func ExceptionType(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case duckdb.Decimal:
			normalized[i] = typed.Float64()
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
