package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCSVSinkWritesRows(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewCSVSink(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.SaveNote(ctx, testNote("n1")))

	exists, err := s.Exists(ctx, "n1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, s.Finalize(ctx))

	f, err := os.Open(filepath.Join(dir, "notes.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus one note row")
	require.Equal(t, "note_id", rows[0][0])
	require.Equal(t, "n1", rows[1][0])

	cf, err := os.Open(filepath.Join(dir, "comments.csv"))
	require.NoError(t, err)
	defer cf.Close()
	crows, err := csv.NewReader(cf).ReadAll()
	require.NoError(t, err)
	require.Len(t, crows, 2)
	require.Equal(t, "n1_c1", crows[1][0])
}

func TestCSVSinkRebuildsIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewCSVSink(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.SaveNote(ctx, testNote("n1")))
	require.NoError(t, s.Finalize(ctx))

	// A fresh sink over the same directory must see the earlier rows and
	// must not rewrite the header.
	s2, err := NewCSVSink(dir, zap.NewNop())
	require.NoError(t, err)
	exists, err := s2.Exists(ctx, "n1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, s2.SaveNote(ctx, testNote("n2")))
	require.NoError(t, s2.Finalize(ctx))

	f, err := os.Open(filepath.Join(dir, "notes.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "one header, two note rows")
}
