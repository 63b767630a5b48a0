package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/note"
)

type searchItem struct {
	NoteID     string `json:"note_id"`
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
	Href       string `json:"href"`
}

// CollectSearch navigates to the keyword's search results and scrapes hits
// across up to rounds scroll-and-scrape passes, stopping early once limit
// unique notes are in hand. Scrape failures inside a round are logged and
// the round is retried by the next pass; only the initial navigation is
// fatal for the keyword.
func (p *Pipeline) CollectSearch(ctx context.Context, tab Tab, keyword string, limit, rounds int) ([]note.Summary, error) {
	searchURL := p.searchBase + "?keyword=" + url.QueryEscape(keyword) + "&source=web_explore_feed"
	if err := tab.Navigate(ctx, searchURL); err != nil {
		return nil, fmt.Errorf("open search for %q: %w", keyword, err)
	}
	p.pause(ctx, 2*time.Second, 4*time.Second)

	seen := make(map[string]struct{})
	var out []note.Summary

	for round := 0; round < rounds && len(out) < limit; round++ {
		if round > 0 {
			if err := tab.ScrollBy(ctx, 600+p.rng.Float64()*400); err != nil {
				p.logger.Debug("search scroll failed", zap.Error(err))
			}
			p.pause(ctx, 2*time.Second, 3*time.Second)
		}

		var payload string
		if err := tab.Eval(ctx, p.searchScript(), &payload); err != nil {
			p.logger.Warn("search scrape failed",
				zap.String("keyword", keyword),
				zap.Int("round", round),
				zap.Error(err),
			)
			continue
		}

		var items []searchItem
		if err := json.Unmarshal([]byte(payload), &items); err != nil {
			p.logger.Warn("search payload undecodable", zap.Error(err))
			continue
		}

		added := 0
		for _, item := range items {
			if item.NoteID == "" {
				continue
			}
			if _, dup := seen[item.NoteID]; dup {
				continue
			}
			seen[item.NoteID] = struct{}{}
			out = append(out, p.toSummary(item))
			added++
			if len(out) >= limit {
				break
			}
		}
		p.logger.Debug("search round done",
			zap.String("keyword", keyword),
			zap.Int("round", round),
			zap.Int("added", added),
			zap.Int("total", len(out)),
		)
	}
	return out, nil
}

func (p *Pipeline) toSummary(item searchItem) note.Summary {
	detail := item.Href
	if strings.HasPrefix(detail, "/") {
		detail = p.baseURL + detail
	}
	return note.Summary{
		NoteID:     item.NoteID,
		Title:      item.Title,
		AuthorName: item.AuthorName,
		DetailURL:  detail,
		ExploreURL: p.baseURL + "/explore/" + item.NoteID,
	}
}
