// Package storage is where finished runs are exported: one Parquet object per
// run, keyed by the UTC day the run started, tagged with the run id and row
// count as user metadata.
package storage

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// User metadata keys written on every run export.
const (
	MetadataRunID    = "run-id"
	MetadataRowCount = "row-count"
)

// ObjectInfo describes a stored export. RunID and Rows come from the object's
// user metadata and stay zero for objects that were not written by an export.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	RunID        string
	Rows         int64
}

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectStore is the object store surface used by the exporter.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

func RunMetadata(runID string, rows int64) map[string]string {
	return map[string]string{
		MetadataRunID:    runID,
		MetadataRowCount: strconv.FormatInt(rows, 10),
	}
}

// WithRunMetadata fills RunID and Rows from metadata as returned by the store.
// S3 canonicalizes user metadata keys, so they are matched case-insensitively.
func (info ObjectInfo) WithRunMetadata(metadata map[string]string) ObjectInfo {
	for key, value := range metadata {
		switch strings.ToLower(key) {
		case MetadataRunID:
			info.RunID = value
		case MetadataRowCount:
			if rows, err := strconv.ParseInt(value, 10, 64); err == nil {
				info.Rows = rows
			}
		}
	}
	return info
}
