package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/note"
)

// scrollStops are the absolute reading positions walked through on a detail
// page so lazy comment batches render.
var scrollStops = []float64{600, 1200, 1800, 2500, 3500}

// FetchDetail loads one note's detail page in the given tab and assembles
// the full record.
//
// The tokenized search URL is tried first, the bare explore URL second. If
// neither loads, a partial record built from the search hit is returned
// together with ErrDetailUnavailable. A video post returns ErrVideoNote and
// no record.
//
// Field extraction reads the serialized client state before any DOM
// interaction; the DOM pass afterwards only fills what the state did not
// provide and scrapes comments.
func (p *Pipeline) FetchDetail(ctx context.Context, tab Tab, sum note.Summary) (*note.Note, error) {
	if err := p.openDetail(ctx, tab, sum); err != nil {
		p.logger.Warn("detail page unreachable", zap.String("note_id", sum.NoteID), zap.Error(err))
		return p.partialNote(sum), ErrDetailUnavailable
	}
	p.pause(ctx, 1*time.Second, 2*time.Second)

	// State read comes first: overlay clicks and scrolling can clear it.
	var payload string
	var snap note.Snapshot
	if err := tab.Eval(ctx, snapshotScript(sum.NoteID), &payload); err != nil {
		p.logger.Debug("state read failed", zap.String("note_id", sum.NoteID), zap.Error(err))
	} else if s, err := note.DecodeSnapshot([]byte(payload)); err != nil {
		p.logger.Debug("state payload rejected", zap.String("note_id", sum.NoteID), zap.Error(err))
	} else {
		snap = s
	}

	if snap.Type == "video" {
		return nil, ErrVideoNote
	}

	p.prepareDOM(ctx, tab)

	n := p.assemble(sum, snap)
	if snap.Empty() {
		p.fillFromDOM(ctx, tab, n)
	}

	n.Comments = p.scrapeComments(ctx, tab, sum.NoteID)
	n.RecomputeDerived()
	n.RankComments()
	return n, nil
}

// openDetail lands the tab on the note's detail page, tokenized search URL
// first, bare explore URL second.
func (p *Pipeline) openDetail(ctx context.Context, tab Tab, sum note.Summary) error {
	if err := p.landOn(ctx, tab, sum.DetailURL); err != nil {
		p.logger.Debug("tokenized detail url failed",
			zap.String("note_id", sum.NoteID),
			zap.Error(err),
		)
		return p.landOn(ctx, tab, sum.ExploreURL)
	}
	return nil
}

// landOn navigates and then verifies the landing location. An expired token
// redirects to the site's 404 page without failing the navigation itself, so
// the resulting URL is the real signal.
func (p *Pipeline) landOn(ctx context.Context, tab Tab, pageURL string) error {
	if err := tab.Navigate(ctx, pageURL); err != nil {
		return err
	}
	loc, err := tab.Location(ctx)
	if err != nil {
		p.logger.Debug("location read failed", zap.Error(err))
		return nil
	}
	if strings.Contains(loc, "404") || strings.Contains(loc, "error") {
		return fmt.Errorf("landed on %s", loc)
	}
	return nil
}

// prepareDOM dismisses overlays, expands truncated text, and walks the
// reading positions. Every step is best-effort.
func (p *Pipeline) prepareDOM(ctx context.Context, tab Tab) {
	if err := tab.Eval(ctx, dismissOverlayScript, nil); err != nil {
		p.logger.Debug("overlay dismissal failed", zap.Error(err))
	}
	p.pause(ctx, 300*time.Millisecond, 800*time.Millisecond)

	if err := tab.Eval(ctx, expandTextScript, nil); err != nil {
		p.logger.Debug("text expand failed", zap.Error(err))
	}

	prev := 0.0
	for _, stop := range scrollStops {
		if err := tab.ScrollBy(ctx, stop-prev); err != nil {
			p.logger.Debug("detail scroll failed", zap.Error(err))
			break
		}
		prev = stop
		p.pause(ctx, 800*time.Millisecond, 1500*time.Millisecond)
	}
}

// scrapeComments collects the note's comments in three tiers: the client's
// comment state map, then the rendered comment nodes, then raw markup
// parsing. Every tier's yield passes through the value thresholds.
func (p *Pipeline) scrapeComments(ctx context.Context, tab Tab, noteID string) []note.Comment {
	var statePayload string
	if err := tab.Eval(ctx, stateCommentsScript(noteID), &statePayload); err == nil {
		if comments, err := note.DecodeComments([]byte(statePayload)); err == nil {
			if kept := valuableComments(comments); len(kept) > 0 {
				return kept
			}
		}
	} else {
		p.logger.Debug("comment state read failed", zap.Error(err))
	}

	var scrapePayload string
	if err := tab.Eval(ctx, p.commentScript(), &scrapePayload); err == nil {
		if comments, err := note.DecodeComments([]byte(scrapePayload)); err == nil {
			if kept := valuableComments(comments); len(kept) > 0 {
				return kept
			}
		}
	} else {
		p.logger.Debug("comment scrape failed", zap.Error(err))
	}

	html, err := tab.HTML(ctx)
	if err != nil {
		p.logger.Debug("comment markup read failed", zap.Error(err))
		return nil
	}
	return valuableComments(p.commentsFromMarkup(html))
}

// Retention thresholds: a top-level comment earns its place by length or by
// likes, a reply with a slightly lower bar.
const (
	topCommentMinRunes   = 10
	topCommentMinLikes   = 3
	replyCommentMinRunes = 8
	replyCommentMinLikes = 2
)

func commentValuable(c note.Comment) bool {
	runes := len([]rune(c.Text))
	if c.IsReply {
		return runes >= replyCommentMinRunes || c.LikeCount >= replyCommentMinLikes
	}
	return runes >= topCommentMinRunes || c.LikeCount >= topCommentMinLikes
}

func valuableComments(comments []note.Comment) []note.Comment {
	kept := comments[:0]
	for _, c := range comments {
		if commentValuable(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// assemble builds the record from the search hit and whatever the state
// snapshot provided, search-hit fields filling the gaps.
func (p *Pipeline) assemble(sum note.Summary, snap note.Snapshot) *note.Note {
	n := &note.Note{
		NoteID:       sum.NoteID,
		URL:          sum.DetailURL,
		Title:        note.CleanText(snap.Title),
		Body:         note.CleanText(snap.Body),
		Type:         snap.Type,
		Tags:         snap.Tags,
		AuthorID:     snap.AuthorID,
		AuthorName:   snap.AuthorName,
		LikeCount:    snap.LikeCount,
		CollectCount: snap.CollectCount,
		CommentCount: snap.CommentCount,
		UploadTime:   snap.UploadTime,
		CrawledAt:    p.now(),
	}
	if n.Title == "" {
		n.Title = note.CleanText(sum.Title)
	}
	if n.AuthorName == "" {
		n.AuthorName = sum.AuthorName
	}
	if n.Type == "" {
		n.Type = "normal"
	}
	return n
}

// partialNote is the degraded record written when the detail page never
// loaded. It keeps the crawl moving and marks the note as seen.
func (p *Pipeline) partialNote(sum note.Summary) *note.Note {
	n := &note.Note{
		NoteID:     sum.NoteID,
		URL:        sum.DetailURL,
		Title:      note.CleanText(sum.Title),
		AuthorName: sum.AuthorName,
		Type:       "normal",
		CrawledAt:  p.now(),
	}
	n.RecomputeDerived()
	return n
}
