// Package progress persists the day-scoped resume record.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Record is the checkpoint written after every completed keyword. It is only
// meaningful for the calendar day it was written.
type Record struct {
	Date         string    `json:"date"`
	DoneKeywords []string  `json:"done_keywords"`
	DailyCount   int       `json:"daily_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store reads and rewrites the progress file.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a Store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load returns today's done-keyword set and daily count. A missing,
// unreadable, or stale (prior-day) record yields an empty state, never an
// error the caller has to branch on.
func (s *Store) Load() (map[string]struct{}, int) {
	done := make(map[string]struct{})

	data, err := os.ReadFile(s.path)
	if err != nil {
		return done, 0
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return done, 0
	}
	if rec.Date != s.today() {
		return done, 0
	}
	for _, kw := range rec.DoneKeywords {
		done[kw] = struct{}{}
	}
	return done, rec.DailyCount
}

// Save rewrites the progress file with the current state.
func (s *Store) Save(done map[string]struct{}, dailyCount int) error {
	keywords := make([]string, 0, len(done))
	for kw := range done {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	rec := Record{
		Date:         s.today(),
		DoneKeywords: keywords,
		DailyCount:   dailyCount,
		UpdatedAt:    s.now(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write progress %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}
