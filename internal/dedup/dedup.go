// Package dedup provides the two-tier note identity check.
package dedup

import (
	"context"

	"go.uber.org/zap"
)

// ExistenceChecker is the slice of the sink contract dedup needs.
type ExistenceChecker interface {
	Exists(ctx context.Context, noteID string) (bool, error)
}

// Deduplicator answers "have we already persisted this note?" with an in-run
// set in front of the persistent sink. Every id lands in the in-run set on
// first sight, so the sink is consulted at most once per id per run.
type Deduplicator struct {
	checker ExistenceChecker
	seen    map[string]struct{}
	logger  *zap.Logger
}

// New constructs a Deduplicator. checker may be nil, in which case only the
// in-run tier applies.
func New(checker ExistenceChecker, logger *zap.Logger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{
		checker: checker,
		seen:    make(map[string]struct{}),
		logger:  logger,
	}
}

// IsDuplicate reports whether noteID was already seen this run or already
// persisted. The first caller for an id always gets false; every later call
// in the same run gets true without touching the sink again.
func (d *Deduplicator) IsDuplicate(ctx context.Context, noteID string) bool {
	if _, ok := d.seen[noteID]; ok {
		return true
	}
	d.seen[noteID] = struct{}{}

	if d.checker == nil {
		return false
	}
	exists, err := d.checker.Exists(ctx, noteID)
	if err != nil {
		// A sink hiccup must not drop the item; treat it as unseen.
		d.logger.Warn("dedup existence check failed", zap.String("note_id", noteID), zap.Error(err))
		return false
	}
	return exists
}

// SeenCount returns how many distinct ids this run has touched.
func (d *Deduplicator) SeenCount() int {
	return len(d.seen)
}
