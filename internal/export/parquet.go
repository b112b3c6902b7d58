package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/querystudio/querystudio/internal/text2sql"
)

// Row is the Parquet layout of one question result. Nested values are kept
// as JSON text.
type Row struct {
	RunID              string `parquet:"run_id"`
	Position           int32  `parquet:"position"`
	Question           string `parquet:"question"`
	MetadataJSON       string `parquet:"metadata_json"`
	Status             string `parquet:"status"`
	SQLCode            string `parquet:"sql_code"`
	Output             string `parquet:"output"`
	ChainOfThoughtJSON string `parquet:"chain_of_thought_json"`
	DataJSON           string `parquet:"data_json"`
	Error              string `parquet:"error"`
	ExceptionType      string `parquet:"exception_type"`
	StartedAtUnixMs    int64  `parquet:"started_at_unix_ms"`
}

type EncodeResult struct {
	Data      []byte
	RowCount  int64
	Succeeded int64
}

func EncodeRun(run Run) (EncodeResult, error) {
	if len(run.Records) == 0 {
		return EncodeResult{}, fmt.Errorf("run %s has no records", run.ID)
	}

	rows := make([]Row, 0, len(run.Records))
	var succeeded int64
	for i, record := range run.Records {
		row, err := toRow(run.ID, run.StartedAt, i, record)
		if err != nil {
			return EncodeResult{}, fmt.Errorf("record %d: %w", i, err)
		}
		if record.Result.Status == text2sql.StatusSucceeded {
			succeeded++
		}
		rows = append(rows, row)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Row](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}
	return EncodeResult{Data: buf.Bytes(), RowCount: int64(len(rows)), Succeeded: succeeded}, nil
}

func toRow(runID string, startedAt time.Time, position int, record Record) (Row, error) {
	metadata, err := jsonText(record.Question.Metadata)
	if err != nil {
		return Row{}, fmt.Errorf("encode metadata: %w", err)
	}
	steps, err := jsonText(record.Result.ChainOfThought)
	if err != nil {
		return Row{}, fmt.Errorf("encode chain of thought: %w", err)
	}
	var data string
	if record.Result.Data != nil {
		if data, err = jsonText(record.Result.Data); err != nil {
			return Row{}, fmt.Errorf("encode data: %w", err)
		}
	}

	text := record.Question.Question
	if text == "" {
		text = record.Result.Input
	}
	return Row{
		RunID:              runID,
		Position:           int32(position),
		Question:           text,
		MetadataJSON:       metadata,
		Status:             string(record.Result.Status),
		SQLCode:            record.Result.SQLCode,
		Output:             record.Result.Output,
		ChainOfThoughtJSON: steps,
		DataJSON:           data,
		Error:              record.Result.Error,
		ExceptionType:      record.Result.ExceptionType,
		StartedAtUnixMs:    startedAt.UnixMilli(),
	}, nil
}

func jsonText(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
