package note

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The client's embedded state object has shipped several generations of field
// names (likedCount vs liked_count, subComments vs replies, ...). Decoding
// goes through per-field alias tables instead of scattering fallbacks inline.

// Count is an interaction counter that tolerates numeric JSON, plain digit
// strings, and the abbreviated forms "1.2万" and "3w".
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("count string: %w", err)
		}
		*c = Count(parseCount(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*c = 0
		return nil
	}
	*c = Count(int(f))
	return nil
}

// parseCount converts loose counter text to an integer, treating anything
// unparseable as zero.
func parseCount(raw string) int {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0
	}
	scale := 1.0
	switch {
	case strings.Contains(v, "万"):
		v = strings.ReplaceAll(v, "万", "")
		scale = 10000
	case strings.ContainsAny(v, "wW"):
		v = strings.TrimRight(strings.ToLower(v), "w")
		scale = 10000
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return int(f * scale)
}

type rawObject map[string]json.RawMessage

func (o rawObject) str(aliases ...string) string {
	for _, key := range aliases {
		raw, ok := o[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		// Timestamps sometimes arrive as bare numbers.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n.String() != "0" {
			return n.String()
		}
	}
	return ""
}

func (o rawObject) count(aliases ...string) int {
	for _, key := range aliases {
		raw, ok := o[key]
		if !ok {
			continue
		}
		var c Count
		if err := json.Unmarshal(raw, &c); err == nil && c != 0 {
			return int(c)
		}
	}
	return 0
}

func (o rawObject) object(aliases ...string) rawObject {
	for _, key := range aliases {
		raw, ok := o[key]
		if !ok {
			continue
		}
		var child rawObject
		if err := json.Unmarshal(raw, &child); err == nil && len(child) > 0 {
			return child
		}
	}
	return nil
}

func (o rawObject) list(aliases ...string) []json.RawMessage {
	for _, key := range aliases {
		raw, ok := o[key]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
			return items
		}
	}
	return nil
}

// Snapshot carries the fields pulled from the client's structured state for
// one note.
type Snapshot struct {
	NoteID       string
	Title        string
	Body         string
	Type         string
	Tags         []string
	AuthorID     string
	AuthorName   string
	LikeCount    int
	CollectCount int
	CommentCount int
	UploadTime   string
}

// Empty reports whether the snapshot carried no usable body text.
func (s Snapshot) Empty() bool {
	return s.Body == ""
}

// DecodeSnapshot parses the JSON payload returned by the in-page state read.
func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var obj rawObject
	if err := json.Unmarshal(payload, &obj); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if msg := obj.str("error"); msg != "" {
		return Snapshot{}, fmt.Errorf("snapshot script error: %s", msg)
	}

	snap := Snapshot{
		NoteID:     obj.str("noteId", "note_id", "id"),
		Title:      obj.str("title"),
		Body:       obj.str("desc", "description", "content"),
		Type:       obj.str("type", "noteType", "note_type"),
		AuthorID:   "",
		UploadTime: obj.str("time", "lastUpdateTime", "last_update_time"),
	}
	if snap.Type == "" {
		snap.Type = "normal"
	}

	for _, raw := range obj.list("tagList", "tag_list", "tags") {
		var tag rawObject
		if err := json.Unmarshal(raw, &tag); err == nil {
			if name := tag.str("name"); name != "" {
				snap.Tags = append(snap.Tags, name)
			}
			continue
		}
		var plain string
		if err := json.Unmarshal(raw, &plain); err == nil && plain != "" {
			snap.Tags = append(snap.Tags, plain)
		}
	}

	if interact := obj.object("interactInfo", "interact_info"); interact != nil {
		snap.LikeCount = interact.count("likedCount", "liked_count", "likes")
		snap.CollectCount = interact.count("collectedCount", "collected_count")
		snap.CommentCount = interact.count("commentCount", "comment_count")
	}

	if user := obj.object("user", "userInfo", "user_info"); user != nil {
		snap.AuthorID = user.str("userId", "user_id", "id")
		snap.AuthorName = user.str("nickname", "nickName", "name")
	}

	return snap, nil
}

// DecodeComments parses the JSON list returned by any comment extraction
// tier. Nested reply lists are flattened in place behind their parent;
// entries without text are dropped.
func DecodeComments(payload []byte) ([]Comment, error) {
	var items []rawObject
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	var comments []Comment
	for _, item := range items {
		comments = appendComment(comments, item, false)
	}
	return comments, nil
}

func appendComment(comments []Comment, item rawObject, reply bool) []Comment {
	if text := item.str("content", "text"); text != "" {
		author := item.str("author_name", "nickname")
		if author == "" {
			if user := item.object("userInfo", "user"); user != nil {
				author = user.str("nickname", "name")
			}
		}
		comments = append(comments, Comment{
			CommentID:  item.str("comment_id", "commentId", "id"),
			Text:       text,
			AuthorName: author,
			LikeCount:  item.count("like_count", "likeCount", "likes"),
			IsReply:    reply || isReply(item),
		})
	}
	for _, raw := range item.list("subComments", "subCommentList", "sub_comment_list", "replies") {
		var child rawObject
		if err := json.Unmarshal(raw, &child); err == nil {
			comments = appendComment(comments, child, true)
		}
	}
	return comments
}

func isReply(item rawObject) bool {
	for _, key := range []string{"is_sub", "is_reply", "isReply"} {
		raw, ok := item[key]
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
	}
	return false
}
