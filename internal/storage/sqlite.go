package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // cgo-free sqlite driver

	"github.com/Harris404/Mimic-Red/internal/note"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS notes (
	note_id           TEXT PRIMARY KEY,
	url               TEXT,
	title             TEXT,
	body              TEXT,
	note_type         TEXT,
	tags              TEXT,
	author_id         TEXT,
	author_name       TEXT,
	liked_count       INTEGER,
	collected_count   INTEGER,
	comment_count     INTEGER,
	total_interaction INTEGER,
	traffic_tier      TEXT,
	upload_time       TEXT,
	crawl_time        TIMESTAMP,
	keyword_source    TEXT,
	crawl_batch       TEXT,
	full_text         TEXT
);
CREATE TABLE IF NOT EXISTS comments (
	comment_id  TEXT PRIMARY KEY,
	note_id     TEXT NOT NULL,
	content     TEXT,
	author_name TEXT,
	like_count  INTEGER,
	is_reply    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_comments_note ON comments(note_id);
`

// SQLiteSink writes each record durably as it arrives.
type SQLiteSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteSink opens (creating if needed) the database file and ensures the
// schema.
func NewSQLiteSink(ctx context.Context, path string, logger *zap.Logger) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// The crawl is single-threaded; one connection avoids lock contention.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteSink{db: db, logger: logger}, nil
}

// Exists reports whether the note is already on disk.
func (s *SQLiteSink) Exists(ctx context.Context, noteID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE note_id = ?`, noteID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query note %s: %w", noteID, err)
	}
	return true, nil
}

// SaveNote upserts the note row and inserts its comments, all in one
// transaction. Re-saving the same note is harmless.
func (s *SQLiteSink) SaveNote(ctx context.Context, n *note.Note) error {
	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO notes (
	note_id, url, title, body, note_type, tags, author_id, author_name,
	liked_count, collected_count, comment_count, total_interaction,
	traffic_tier, upload_time, crawl_time, keyword_source, crawl_batch, full_text
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(note_id) DO UPDATE SET
	url = excluded.url,
	title = excluded.title,
	body = excluded.body,
	note_type = excluded.note_type,
	tags = excluded.tags,
	author_id = excluded.author_id,
	author_name = excluded.author_name,
	liked_count = excluded.liked_count,
	collected_count = excluded.collected_count,
	comment_count = excluded.comment_count,
	total_interaction = excluded.total_interaction,
	traffic_tier = excluded.traffic_tier,
	upload_time = excluded.upload_time,
	crawl_time = excluded.crawl_time,
	keyword_source = excluded.keyword_source,
	crawl_batch = excluded.crawl_batch,
	full_text = excluded.full_text`,
		n.NoteID, n.URL, n.Title, n.Body, n.Type, string(tags), n.AuthorID, n.AuthorName,
		n.LikeCount, n.CollectCount, n.CommentCount, n.TotalInteraction,
		string(n.TrafficTier), n.UploadTime, n.CrawledAt, n.KeywordSource, n.CrawlBatch, n.FullText,
	)
	if err != nil {
		return fmt.Errorf("upsert note %s: %w", n.NoteID, err)
	}

	for _, cm := range n.Comments {
		_, err = tx.ExecContext(ctx, `
INSERT OR IGNORE INTO comments (comment_id, note_id, content, author_name, like_count, is_reply)
VALUES (?, ?, ?, ?, ?, ?)`,
			cm.CommentID, cm.NoteID, cm.Text, cm.AuthorName, cm.LikeCount, cm.IsReply,
		)
		if err != nil {
			return fmt.Errorf("insert comment %s: %w", cm.CommentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit note %s: %w", n.NoteID, err)
	}
	return nil
}

// Finalize closes the database; every write is already durable.
func (s *SQLiteSink) Finalize(context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
