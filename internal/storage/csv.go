package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/note"
)

var noteHeader = []string{
	"note_id", "url", "title", "desc", "note_type", "tags", "author_id",
	"author_name", "liked_count", "collected_count", "comment_count",
	"total_interaction", "traffic_tier", "upload_time", "crawl_time",
	"keyword_source", "crawl_batch",
}

var commentHeader = []string{
	"comment_id", "note_id", "content", "author_name", "like_count", "is_reply",
}

// CSVSink appends one row per note and per comment, flushed eagerly so an
// interrupted run loses nothing.
type CSVSink struct {
	notesFile    *os.File
	commentsFile *os.File
	notes        *csv.Writer
	comments     *csv.Writer
	index        map[string]struct{}
	logger       *zap.Logger
}

// NewCSVSink opens (or creates) the row files under dir and rebuilds the
// existence index from rows already on disk.
func NewCSVSink(dir string, logger *zap.Logger) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}

	index, err := readNoteIDs(filepath.Join(dir, "notes.csv"))
	if err != nil {
		return nil, err
	}

	notesFile, fresh, err := openAppend(filepath.Join(dir, "notes.csv"))
	if err != nil {
		return nil, err
	}
	commentsFile, commentsFresh, err := openAppend(filepath.Join(dir, "comments.csv"))
	if err != nil {
		notesFile.Close()
		return nil, err
	}

	s := &CSVSink{
		notesFile:    notesFile,
		commentsFile: commentsFile,
		notes:        csv.NewWriter(notesFile),
		comments:     csv.NewWriter(commentsFile),
		index:        index,
		logger:       logger,
	}
	if fresh {
		if err := s.notes.Write(noteHeader); err != nil {
			return nil, fmt.Errorf("write notes header: %w", err)
		}
	}
	if commentsFresh {
		if err := s.comments.Write(commentHeader); err != nil {
			return nil, fmt.Errorf("write comments header: %w", err)
		}
	}
	s.notes.Flush()
	s.comments.Flush()
	return s, nil
}

// Exists answers from the on-disk index built at open time plus rows written
// since.
func (s *CSVSink) Exists(_ context.Context, noteID string) (bool, error) {
	_, ok := s.index[noteID]
	return ok, nil
}

// SaveNote appends the note row and its comment rows and flushes both files.
func (s *CSVSink) SaveNote(_ context.Context, n *note.Note) error {
	row := []string{
		n.NoteID, n.URL, n.Title, n.Body, n.Type, strings.Join(n.Tags, ";"),
		n.AuthorID, n.AuthorName,
		strconv.Itoa(n.LikeCount), strconv.Itoa(n.CollectCount), strconv.Itoa(n.CommentCount),
		strconv.Itoa(n.TotalInteraction), string(n.TrafficTier), n.UploadTime,
		n.CrawledAt.Format(time.RFC3339), n.KeywordSource, n.CrawlBatch,
	}
	if err := s.notes.Write(row); err != nil {
		return fmt.Errorf("write note row %s: %w", n.NoteID, err)
	}
	for _, cm := range n.Comments {
		crow := []string{
			cm.CommentID, cm.NoteID, cm.Text, cm.AuthorName,
			strconv.Itoa(cm.LikeCount), strconv.FormatBool(cm.IsReply),
		}
		if err := s.comments.Write(crow); err != nil {
			return fmt.Errorf("write comment row %s: %w", cm.CommentID, err)
		}
	}
	s.notes.Flush()
	s.comments.Flush()
	if err := s.notes.Error(); err != nil {
		return fmt.Errorf("flush notes: %w", err)
	}
	if err := s.comments.Error(); err != nil {
		return fmt.Errorf("flush comments: %w", err)
	}
	s.index[n.NoteID] = struct{}{}
	return nil
}

// Finalize flushes and closes both files.
func (s *CSVSink) Finalize(context.Context) error {
	s.notes.Flush()
	s.comments.Flush()
	if err := s.notesFile.Close(); err != nil {
		return fmt.Errorf("close notes csv: %w", err)
	}
	if err := s.commentsFile.Close(); err != nil {
		return fmt.Errorf("close comments csv: %w", err)
	}
	return nil
}

func openAppend(path string) (*os.File, bool, error) {
	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	return f, fresh, nil
}

// readNoteIDs rebuilds the dedup index from the first column of an existing
// notes file.
func readNoteIDs(path string) (map[string]struct{}, error) {
	index := make(map[string]struct{})
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if first {
			first = false
			continue
		}
		if len(row) > 0 && row[0] != "" {
			index[row[0]] = struct{}{}
		}
	}
	return index, nil
}
