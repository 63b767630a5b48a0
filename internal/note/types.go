// Package note defines the core data model shared across subsystems.
package note

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// TrafficTier is a coarse popularity bucket derived from summed interactions.
type TrafficTier string

// Traffic tiers persisted with each note.
const (
	TierTop    TrafficTier = "top"
	TierHigh   TrafficTier = "high"
	TierNormal TrafficTier = "normal"
	TierLow    TrafficTier = "low"
)

// TierFor buckets a total interaction count.
func TierFor(totalInteraction int) TrafficTier {
	switch {
	case totalInteraction >= 10000:
		return TierTop
	case totalInteraction >= 1000:
		return TierHigh
	case totalInteraction >= 100:
		return TierNormal
	default:
		return TierLow
	}
}

// MaxComments caps how many comments are retained per note.
const MaxComments = 50

// Summary is one hit scraped from a search results page. DetailURL carries
// the short-lived access token; ExploreURL is the untokenized fallback and
// may 404.
type Summary struct {
	NoteID     string
	Title      string
	AuthorName string
	DetailURL  string
	ExploreURL string
}

// Comment is a single retained comment or reply.
type Comment struct {
	CommentID  string `json:"comment_id"`
	NoteID     string `json:"note_id"`
	Text       string `json:"content"`
	AuthorName string `json:"author_name"`
	LikeCount  int    `json:"like_count"`
	IsReply    bool   `json:"is_reply"`
}

// Note is the assembled record for one scraped post plus its comment set.
type Note struct {
	NoteID           string      `json:"note_id"`
	URL              string      `json:"url"`
	Title            string      `json:"title"`
	Body             string      `json:"desc"`
	Type             string      `json:"note_type"`
	Tags             []string    `json:"tags"`
	AuthorID         string      `json:"author_id"`
	AuthorName       string      `json:"author_name"`
	LikeCount        int         `json:"liked_count"`
	CollectCount     int         `json:"collected_count"`
	CommentCount     int         `json:"comment_count"`
	TotalInteraction int         `json:"total_interaction"`
	TrafficTier      TrafficTier `json:"traffic_tier"`
	UploadTime       string      `json:"upload_time"`
	CrawledAt        time.Time   `json:"crawl_time"`
	KeywordSource    string      `json:"keyword_source"`
	CrawlBatch       string      `json:"crawl_batch"`
	FullText         string      `json:"full_text"`
	Comments         []Comment   `json:"comments"`
}

// RecomputeDerived refreshes the fields that are functions of other fields.
// TotalInteraction is always the sum of its three inputs, never set directly.
func (n *Note) RecomputeDerived() {
	n.TotalInteraction = n.LikeCount + n.CollectCount + n.CommentCount
	n.TrafficTier = TierFor(n.TotalInteraction)
	n.FullText = strings.TrimSpace(n.Title + " " + n.Body + " " + strings.Join(n.Tags, " "))
}

// RankComments sorts by (text length, like count) descending, caps the set at
// MaxComments, and synthesizes ids for comments the source left without one.
func (n *Note) RankComments() {
	sort.SliceStable(n.Comments, func(i, j int) bool {
		a, b := n.Comments[i], n.Comments[j]
		if la, lb := len([]rune(a.Text)), len([]rune(b.Text)); la != lb {
			return la > lb
		}
		return a.LikeCount > b.LikeCount
	})
	if len(n.Comments) > MaxComments {
		n.Comments = n.Comments[:MaxComments]
	}
	for i := range n.Comments {
		n.Comments[i].NoteID = n.NoteID
		if n.Comments[i].CommentID == "" {
			n.Comments[i].CommentID = SynthesizeCommentID(n.NoteID, n.Comments[i].Text, i)
		}
	}
}

// SynthesizeCommentID derives a stable id for comments whose source id is
// missing. The same (note, text, ordinal) triple always maps to the same id.
func SynthesizeCommentID(noteID, text string, ordinal int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s_%s_%d", noteID, text, ordinal)))
	return noteID + "_" + hex.EncodeToString(sum[:])[:12]
}

var (
	hashTagPattern    = regexp.MustCompile(`#(\S+)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText strips non-BMP runes (emoji and friends), rewrites #tag markers
// to [tag], and collapses runs of whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r <= 0xFFFF {
			b.WriteRune(r)
		}
	}
	cleaned := hashTagPattern.ReplaceAllString(b.String(), "[$1]")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
}
