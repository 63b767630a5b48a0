package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/note"
)

// JSONSink buffers records in memory and writes the whole day file once at
// Finalize. Crash durability is traded for one well-formed document.
type JSONSink struct {
	path   string
	notes  []*note.Note
	index  map[string]struct{}
	logger *zap.Logger
	now    func() time.Time
}

// NewJSONSink loads today's file if it already exists so a resumed run
// appends instead of overwriting.
func NewJSONSink(dir string, logger *zap.Logger) (*JSONSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create json dir: %w", err)
	}
	s := &JSONSink{
		index:  make(map[string]struct{}),
		logger: logger,
		now:    time.Now,
	}
	s.path = filepath.Join(dir, "notes_"+s.now().Format("2006-01-02")+".json")

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.notes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	for _, n := range s.notes {
		s.index[n.NoteID] = struct{}{}
	}
	return s, nil
}

// Exists answers from the buffered set, which includes today's earlier runs.
func (s *JSONSink) Exists(_ context.Context, noteID string) (bool, error) {
	_, ok := s.index[noteID]
	return ok, nil
}

// SaveNote buffers the record until Finalize.
func (s *JSONSink) SaveNote(_ context.Context, n *note.Note) error {
	if _, dup := s.index[n.NoteID]; dup {
		for i, existing := range s.notes {
			if existing.NoteID == n.NoteID {
				s.notes[i] = n
				return nil
			}
		}
	}
	s.notes = append(s.notes, n)
	s.index[n.NoteID] = struct{}{}
	return nil
}

// Finalize writes the buffered records as one indented document.
func (s *JSONSink) Finalize(context.Context) error {
	notes := s.notes
	if notes == nil {
		notes = []*note.Note{}
	}
	payload, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
