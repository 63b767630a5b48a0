package extract

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/config"
	"github.com/Harris404/Mimic-Red/internal/note"
)

// fillFromDOM parses the rendered markup for the fields the state snapshot
// did not provide.
func (p *Pipeline) fillFromDOM(ctx context.Context, tab Tab, n *note.Note) {
	html, err := tab.HTML(ctx)
	if err != nil {
		p.logger.Debug("detail markup read failed", zap.Error(err))
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Debug("detail markup unparsable", zap.Error(err))
		return
	}

	if n.Title == "" {
		n.Title = note.CleanText(p.firstText(doc, config.SelDetailTitle))
	}
	if n.Body == "" {
		n.Body = note.CleanText(p.firstText(doc, config.SelDetailBody))
	}
	if len(n.Tags) == 0 {
		n.Tags = p.collectTags(doc)
	}
}

// firstText returns the first non-empty text among the field's selector
// candidates, in priority order.
func (p *Pipeline) firstText(doc *goquery.Document, field string) string {
	for _, sel := range p.selectors.Field(field) {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func (p *Pipeline) collectTags(doc *goquery.Document) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, sel := range p.selectors.Field(config.SelDetailTags) {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			tag := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s.Text()), "#"))
			if tag == "" {
				return
			}
			if _, dup := seen[tag]; dup {
				return
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		})
		if len(tags) > 0 {
			break
		}
	}
	return tags
}

// commentsFromMarkup is the markup-level comment fallback for pages where
// the in-page scrape came back empty.
func (p *Pipeline) commentsFromMarkup(html string) []note.Comment {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Debug("comment markup unparsable", zap.Error(err))
		return nil
	}

	var comments []note.Comment
	seen := make(map[string]struct{})
	for _, itemSel := range p.selectors.Field(config.SelCommentItem) {
		doc.Find(itemSel).Each(func(_ int, item *goquery.Selection) {
			text := p.firstSelText(item, config.SelCommentText)
			if len([]rune(text)) < 2 {
				return
			}
			if _, dup := seen[text]; dup {
				return
			}
			seen[text] = struct{}{}

			cls, _ := item.Attr("class")
			comments = append(comments, note.Comment{
				Text:       note.CleanText(text),
				AuthorName: p.firstSelText(item, config.SelCommentAuthor),
				LikeCount:  parseLikeCount(p.firstSelText(item, config.SelCommentLikes)),
				IsReply:    strings.Contains(cls, "reply"),
			})
		})
		if len(comments) > 0 {
			break
		}
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].LikeCount > comments[j].LikeCount
	})
	return comments
}

func (p *Pipeline) firstSelText(item *goquery.Selection, field string) string {
	for _, sel := range p.selectors.Field(field) {
		text := strings.TrimSpace(item.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// parseLikeCount pulls the digits out of a like label like "赞 12".
func parseLikeCount(text string) int {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
