package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/note"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS notes (
	note_id           TEXT PRIMARY KEY,
	url               TEXT,
	title             TEXT,
	body              TEXT,
	note_type         TEXT,
	tags              JSONB,
	author_id         TEXT,
	author_name       TEXT,
	liked_count       INTEGER,
	collected_count   INTEGER,
	comment_count     INTEGER,
	total_interaction INTEGER,
	traffic_tier      TEXT,
	upload_time       TEXT,
	crawl_time        TIMESTAMPTZ,
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
	is_reply    BOOLEAN
);
CREATE INDEX IF NOT EXISTS idx_comments_note ON comments(note_id);
`

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresSink writes each record durably as it arrives.
type PostgresSink struct {
	pool   pgPool
	logger *zap.Logger
}

// NewPostgresSink connects a pool and ensures the schema.
func NewPostgresSink(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &PostgresSink{pool: pool, logger: logger}, nil
}

// NewPostgresSinkWithPool constructs a sink from an existing pool, primarily
// for testing.
func NewPostgresSinkWithPool(pool pgPool, logger *zap.Logger) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresSink{pool: pool, logger: logger}, nil
}

// Exists reports whether the note row is already persisted.
func (s *PostgresSink) Exists(ctx context.Context, noteID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM notes WHERE note_id = $1`, noteID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query note %s: %w", noteID, err)
	}
	return true, nil
}

// SaveNote upserts the note row and inserts its comments. Comment conflicts
// are ignored so re-crawls stay idempotent.
func (s *PostgresSink) SaveNote(ctx context.Context, n *note.Note) error {
	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO notes (
	note_id, url, title, body, note_type, tags, author_id, author_name,
	liked_count, collected_count, comment_count, total_interaction,
	traffic_tier, upload_time, crawl_time, keyword_source, crawl_batch, full_text
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (note_id) DO UPDATE SET
	url = EXCLUDED.url,
	title = EXCLUDED.title,
	body = EXCLUDED.body,
	note_type = EXCLUDED.note_type,
	tags = EXCLUDED.tags,
	author_id = EXCLUDED.author_id,
	author_name = EXCLUDED.author_name,
	liked_count = EXCLUDED.liked_count,
	collected_count = EXCLUDED.collected_count,
	comment_count = EXCLUDED.comment_count,
	total_interaction = EXCLUDED.total_interaction,
	traffic_tier = EXCLUDED.traffic_tier,
	upload_time = EXCLUDED.upload_time,
	crawl_time = EXCLUDED.crawl_time,
	keyword_source = EXCLUDED.keyword_source,
	crawl_batch = EXCLUDED.crawl_batch,
	full_text = EXCLUDED.full_text`,
		n.NoteID, n.URL, n.Title, n.Body, n.Type, tags, n.AuthorID, n.AuthorName,
		n.LikeCount, n.CollectCount, n.CommentCount, n.TotalInteraction,
		string(n.TrafficTier), n.UploadTime, n.CrawledAt, n.KeywordSource, n.CrawlBatch, n.FullText,
	)
	if err != nil {
		return fmt.Errorf("upsert note %s: %w", n.NoteID, err)
	}

	for _, cm := range n.Comments {
		_, err = s.pool.Exec(ctx, `
INSERT INTO comments (comment_id, note_id, content, author_name, like_count, is_reply)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (comment_id) DO NOTHING`,
			cm.CommentID, cm.NoteID, cm.Text, cm.AuthorName, cm.LikeCount, cm.IsReply,
		)
		if err != nil {
			return fmt.Errorf("insert comment %s: %w", cm.CommentID, err)
		}
	}
	return nil
}

// Finalize releases the pool; every write is already durable.
func (s *PostgresSink) Finalize(context.Context) error {
	s.pool.Close()
	return nil
}
