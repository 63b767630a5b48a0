package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Selector field names understood by the extraction pipeline. Operators can
// override any of them from an external JSON file when the remote markup
// changes, without a code change.
const (
	SelSearchItem    = "search_item"
	SelSearchTitle   = "search_title"
	SelSearchAuthor  = "search_author"
	SelDetailTitle   = "detail_title"
	SelDetailBody    = "detail_body"
	SelDetailTags    = "detail_tags"
	SelCommentItem   = "comment_item"
	SelCommentText   = "comment_text"
	SelCommentAuthor = "comment_author"
	SelCommentLikes  = "comment_likes"
)

var defaultSelectors = map[string][]string{
	SelSearchItem:    {"section.note-item"},
	SelSearchTitle:   {".title", ".note-title", `[class*="title"]`},
	SelSearchAuthor:  {".author", ".nickname", `[class*="name"]`},
	SelDetailTitle:   {".note-detail-mask .title", "#detail-title"},
	SelDetailBody:    {"#detail-desc", ".note-text"},
	SelDetailTags:    {".tag-item"},
	SelCommentItem:   {".comment-item", ".comment-inner-container", `[class*="commentItem"]`, `[class*="comment-item"]`, ".parent-comment", `[class*="CommentItem"]`},
	SelCommentText:   {".content", ".note-text", `[class*="content"]`, `[class*="text"]`, "p"},
	SelCommentAuthor: {".name", ".author", ".nickname", ".user-name", `[class*="name"]`, `[class*="author"]`},
	SelCommentLikes:  {".like-count", ".like span", `[class*="like"] span`, `[class*="count"]`},
}

// Selectors resolves logical field names to prioritized CSS selector lists.
// Resolution is layered: built-in defaults, overridden per key by an optional
// external file. A key that fails validation falls back alone; it does not
// poison the rest of the file.
type Selectors struct {
	fields map[string][]string
}

// DefaultSelectors returns a resolver backed only by the built-in table.
func DefaultSelectors() *Selectors {
	return &Selectors{fields: defaultSelectors}
}

// LoadSelectors reads an override file and layers it over the defaults.
// A missing file is not an error; the defaults apply unchanged.
func LoadSelectors(path string) (*Selectors, error) {
	merged := make(map[string][]string, len(defaultSelectors))
	for k, v := range defaultSelectors {
		merged[k] = v
	}
	s := &Selectors{fields: merged}

	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read selectors file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse selectors file: %w", err)
	}
	for key, val := range raw {
		if _, known := defaultSelectors[key]; !known {
			continue
		}
		if candidates := decodeSelectorList(val); len(candidates) > 0 {
			merged[key] = candidates
		}
	}
	return s, nil
}

// decodeSelectorList accepts either a JSON array of selectors or a single
// comma-separated string, the two formats the override file has used.
func decodeSelectorList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimSelectors(list)
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return trimSelectors(strings.Split(single, ","))
	}
	return nil
}

func trimSelectors(in []string) []string {
	out := make([]string, 0, len(in))
	for _, sel := range in {
		sel = strings.TrimSpace(sel)
		if sel != "" {
			out = append(out, sel)
		}
	}
	return out
}

// Field returns the prioritized selector list for a logical field name.
func (s *Selectors) Field(name string) []string {
	if s == nil {
		return defaultSelectors[name]
	}
	return s.fields[name]
}
