// Package storage provides the persistence sinks for assembled note
// records: SQLite, Postgres, CSV, and JSON.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/config"
	"github.com/Harris404/Mimic-Red/internal/note"
)

// Sink persists note records. SaveNote writes the note and its retained
// comments together; whether that write is immediate or buffered until
// Finalize is up to the implementation. Exists answers from already-durable
// data only.
type Sink interface {
	Exists(ctx context.Context, noteID string) (bool, error)
	SaveNote(ctx context.Context, n *note.Note) error
	Finalize(ctx context.Context) error
}

// NewSink builds the sink selected by the storage config. File-backed sinks
// write under a per-format subdirectory of the output dir.
func NewSink(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Format {
	case "sqlite":
		return NewSQLiteSink(ctx, filepath.Join(cfg.OutputDir, "sqlite", "notes.db"), logger)
	case "postgres":
		return NewPostgresSink(ctx, cfg.PostgresDSN, logger)
	case "csv":
		return NewCSVSink(filepath.Join(cfg.OutputDir, "csv"), logger)
	case "json":
		return NewJSONSink(filepath.Join(cfg.OutputDir, "json"), logger)
	default:
		return nil, fmt.Errorf("unknown storage format %q", cfg.Format)
	}
}
