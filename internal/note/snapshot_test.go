package note

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"42", 42},
		{"1.2万", 12000},
		{"3w", 30000},
		{"2.5W", 25000},
		{"junk", 0},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, parseCount(tc.in), "in=%q", tc.in)
	}
}

func TestDecodeSnapshotCamelCase(t *testing.T) {
	payload := []byte(`{
		"noteId": "n123",
		"title": "visa checklist",
		"desc": "everything you need before departure",
		"type": "normal",
		"time": 1700000000,
		"tagList": [{"name": "visa", "id": "t1"}, {"name": "checklist", "id": "t2"}],
		"interactInfo": {"likedCount": "1.2万", "collectedCount": "300", "commentCount": 45},
		"user": {"nickname": "trip owl", "userId": "u9"}
	}`)

	snap, err := DecodeSnapshot(payload)
	require.NoError(t, err)
	require.Equal(t, "n123", snap.NoteID)
	require.Equal(t, "visa checklist", snap.Title)
	require.False(t, snap.Empty())
	require.Equal(t, []string{"visa", "checklist"}, snap.Tags)
	require.Equal(t, 12000, snap.LikeCount)
	require.Equal(t, 300, snap.CollectCount)
	require.Equal(t, 45, snap.CommentCount)
	require.Equal(t, "trip owl", snap.AuthorName)
	require.Equal(t, "u9", snap.AuthorID)
	require.Equal(t, "1700000000", snap.UploadTime)
}

func TestDecodeSnapshotSnakeCaseAliases(t *testing.T) {
	payload := []byte(`{
		"note_id": "n456",
		"desc": "short",
		"tags": ["housing"],
		"interact_info": {"liked_count": 7, "comment_count": "2"},
		"user_info": {"nickname": "anon", "id": "u1"}
	}`)

	snap, err := DecodeSnapshot(payload)
	require.NoError(t, err)
	require.Equal(t, "n456", snap.NoteID)
	require.Equal(t, "normal", snap.Type, "missing type defaults to normal")
	require.Equal(t, []string{"housing"}, snap.Tags)
	require.Equal(t, 7, snap.LikeCount)
	require.Equal(t, 2, snap.CommentCount)
	require.Equal(t, "u1", snap.AuthorID)
}

func TestDecodeSnapshotScriptError(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"error": "state missing"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "state missing")
}

func TestDecodeComments(t *testing.T) {
	payload := []byte(`[
		{"content": "try the agency near campus", "author_name": "amy", "like_count": 5, "is_sub": false},
		{"text": "agree, they were quick", "userInfo": {"nickname": "bo"}, "likeCount": "2", "is_reply": true},
		{"content": ""},
		{"commentId": "c9", "content": "what about the bond?"}
	]`)

	comments, err := DecodeComments(payload)
	require.NoError(t, err)
	require.Len(t, comments, 3, "empty-text entries are dropped")

	require.Equal(t, "try the agency near campus", comments[0].Text)
	require.Equal(t, 5, comments[0].LikeCount)
	require.False(t, comments[0].IsReply)

	require.Equal(t, "bo", comments[1].AuthorName)
	require.Equal(t, 2, comments[1].LikeCount)
	require.True(t, comments[1].IsReply)

	require.Equal(t, "c9", comments[2].CommentID)
}

func TestDecodeCommentsFlattensNestedReplies(t *testing.T) {
	payload := []byte(`[
		{
			"content": "the landlord answered within a day",
			"like_count": 4,
			"subComments": [
				{"content": "same here, very responsive", "likeCount": 1},
				{"content": "which branch?", "sub_comment_list": [{"content": "the east gate one"}]}
			]
		}
	]`)

	comments, err := DecodeComments(payload)
	require.NoError(t, err)
	require.Len(t, comments, 4)

	require.False(t, comments[0].IsReply)
	for _, c := range comments[1:] {
		require.True(t, c.IsReply, "nested entries decode as replies: %q", c.Text)
	}
	require.Equal(t, "the east gate one", comments[3].Text)
}
