package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "nested", "progress.json"))
	s.now = func() time.Time { return now }
	return s
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t, time.Now())
	done, count := s.Load()
	require.Empty(t, done)
	require.Zero(t, count)
}

func TestSaveThenLoadSameDay(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	require.NoError(t, s.Save(map[string]struct{}{"k1": {}, "k2": {}}, 17))

	done, count := s.Load()
	require.Equal(t, 17, count)
	require.Contains(t, done, "k1")
	require.Contains(t, done, "k2")
}

func TestLoadIgnoresPriorDay(t *testing.T) {
	yesterday := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	s := newTestStore(t, yesterday)
	require.NoError(t, s.Save(map[string]struct{}{"k1": {}}, 9))

	// Same file, read the next day.
	s.now = func() time.Time { return yesterday.Add(6 * time.Hour) }
	done, count := s.Load()
	require.Empty(t, done, "a prior-day record is treated as absent")
	require.Zero(t, count)
}

func TestLoadCorruptFile(t *testing.T) {
	s := newTestStore(t, time.Now())
	require.NoError(t, os.MkdirAll(filepath.Dir(s.path), 0o750))
	require.NoError(t, os.WriteFile(s.path, []byte("{broken"), 0o600))

	done, count := s.Load()
	require.Empty(t, done)
	require.Zero(t, count)
}

func TestSaveFormat(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 30, 0, 0, time.UTC)
	s := newTestStore(t, now)
	require.NoError(t, s.Save(map[string]struct{}{"b": {}, "a": {}}, 3))

	data, err := os.ReadFile(s.path)
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, "2026-08-29", rec.Date)
	require.Equal(t, []string{"a", "b"}, rec.DoneKeywords, "keywords are written sorted")
	require.Equal(t, 3, rec.DailyCount)
	require.Equal(t, now, rec.UpdatedAt.UTC())
}
