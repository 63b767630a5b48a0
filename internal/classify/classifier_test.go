package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Harris404/Mimic-Red/internal/note"
)

func TestClassifyGuidanceNote(t *testing.T) {
	c := New()
	n := &note.Note{
		Title:        "租房攻略：布里斯班找房经验总结",
		Body:         strings.Repeat("先确定预算，再看区域。", 90),
		Tags:         []string{"澳洲留学"},
		LikeCount:    200,
		CommentCount: 40,
	}

	res := c.Classify(n)

	require.Equal(t, CategoryGuidance, res.Category)
	require.False(t, res.ShouldSkip)
	require.GreaterOrEqual(t, res.QualityScore, SkipThreshold)
	require.Equal(t, 32, res.CommentTarget, "0.8 ratio of 40 comments")
}

func TestClassifySuperficialNote(t *testing.T) {
	c := New()
	n := &note.Note{
		Title: "今日穿搭打卡",
		Body:  "OOTD 自拍分享",
	}

	res := c.Classify(n)

	require.Equal(t, CategorySuperficial, res.Category)
	require.True(t, res.ShouldSkip)
	require.Equal(t, 0, res.QualityScore, "negative raw score clamps to zero")
	require.Equal(t, 5, res.CommentTarget)
}

func TestClassifyInterrogativeTitleNudgesDiscussion(t *testing.T) {
	c := New()
	n := &note.Note{
		Title: "有人知道怎么申请退税吗？",
		Body:  strings.Repeat("内容", 120),
	}

	res := c.Classify(n)
	require.Equal(t, CategoryDiscussion, res.Category)
}

func TestClassifySerialDiaryForcedDaily(t *testing.T) {
	c := New()
	n := &note.Note{
		Title: "留学生活 Day12",
		Body:  strings.Repeat("流水账", 80),
	}

	res := c.Classify(n)
	require.Equal(t, CategoryDaily, res.Category)
}

// Score clamping and the skip rule must agree for any input.
func TestClassifyScoreBoundsAndSkipAgreement(t *testing.T) {
	c := New()
	validCategories := map[Category]bool{
		CategoryGuidance: true, CategoryDiscussion: true,
		CategoryDaily: true, CategorySuperficial: true,
	}

	notes := []*note.Note{
		{},
		{Title: "？", Body: "x"},
		{Title: "攻略 经验 总结 详解 申请 签证", Body: strings.Repeat("干货", 500), LikeCount: 10, CommentCount: 100},
		{Title: "自拍 穿搭 打卡 vlog 日常", Body: "短"},
		{Title: "第3天 vlog", Body: strings.Repeat("a", 900), Tags: []string{"留学"}},
		{Body: strings.Repeat("b", 199), LikeCount: 100, CommentCount: 16},
	}
	for i, n := range notes {
		res := c.Classify(n)
		require.GreaterOrEqual(t, res.QualityScore, 0, "note %d", i)
		require.LessOrEqual(t, res.QualityScore, 100, "note %d", i)
		require.True(t, validCategories[res.Category], "note %d category %q", i, res.Category)
		require.Equal(t, res.QualityScore < SkipThreshold, res.ShouldSkip, "note %d", i)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New()
	n := &note.Note{Title: "选课建议？", Body: strings.Repeat("详解", 300), CommentCount: 50, LikeCount: 60}
	first := c.Classify(n)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, c.Classify(n))
	}
}

func TestCommentTargetBounds(t *testing.T) {
	require.Equal(t, 20, commentTarget(CategoryGuidance, 25), "few comments uses fixed table")
	require.Equal(t, 20, commentTarget(CategorySuperficial, 60), "ratio result floors at 20")
	require.Equal(t, 500, commentTarget(CategoryGuidance, 100000), "ratio result caps at 500")
	require.Equal(t, 60, commentTarget(CategoryDiscussion, 100))
}
