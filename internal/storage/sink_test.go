package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Harris404/Mimic-Red/internal/config"
)

func TestNewSinkUnknownFormat(t *testing.T) {
	_, err := NewSink(context.Background(), config.StorageConfig{Format: "parquet"}, nil)
	require.Error(t, err)
}

func TestNewSinkFileFormats(t *testing.T) {
	ctx := context.Background()
	for _, format := range []string{"sqlite", "csv", "json"} {
		t.Run(format, func(t *testing.T) {
			sink, err := NewSink(ctx, config.StorageConfig{
				Format:    format,
				OutputDir: t.TempDir(),
			}, nil)
			require.NoError(t, err)
			require.NoError(t, sink.Finalize(ctx))
		})
	}
}
