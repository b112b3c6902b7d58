// Package export writes a finished pipeline run to the object store as a
// Parquet dataset.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querystudio/querystudio/internal/observability"
	"github.com/querystudio/querystudio/internal/question"
	"github.com/querystudio/querystudio/internal/storage"
	"github.com/querystudio/querystudio/internal/text2sql"
)

const parquetContentType = "application/vnd.apache.parquet"

// Record pairs a question with the agent result produced for it.
type Record struct {
	Question question.Question
	Result   text2sql.Result
}

type Run struct {
	ID        string
	StartedAt time.Time
	Records   []Record
}

type Manifest struct {
	RunID     string `json:"run_id"`
	Key       string `json:"key"`
	Rows      int64  `json:"rows"`
	Succeeded int64  `json:"succeeded"`
	SizeBytes int64  `json:"size_bytes"`
	ETag      string `json:"etag,omitempty"`
}

type Exporter struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

func New(store storage.ObjectStore, logger *slog.Logger) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = observability.Discard()
	}
	return &Exporter{store: store, logger: logger}, nil
}

func (e *Exporter) Export(ctx context.Context, run Run) (manifest Manifest, err error) {
	defer func() { observability.ObserveExport(err) }()

	key, err := storage.BuildRunPath(run.ID, run.StartedAt)
	if err != nil {
		return Manifest{}, err
	}
	encoded, err := EncodeRun(run)
	if err != nil {
		return Manifest{}, err
	}

	info, err := e.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: parquetContentType,
		Metadata:    storage.RunMetadata(run.ID, encoded.RowCount),
	})
	if err != nil {
		return Manifest{}, fmt.Errorf("upload run %s: %w", run.ID, err)
	}

	manifest = Manifest{
		RunID:     run.ID,
		Key:       key,
		Rows:      encoded.RowCount,
		Succeeded: encoded.Succeeded,
		SizeBytes: int64(len(encoded.Data)),
		ETag:      info.ETag,
	}
	e.logger.Info("run exported",
		"run_id", run.ID,
		"key", key,
		"rows", manifest.Rows,
		"size_bytes", manifest.SizeBytes,
	)
	return manifest, nil
}
