// Package classify implements the deterministic content-quality scorer.
//
// Scoring is a pure function of a note's title, body, tags, and interaction
// counts. The same note always classifies the same way, which keeps the
// keep/skip decision reproducible across runs.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Harris404/Mimic-Red/internal/note"
)

// Category buckets notes by evident intent.
type Category string

// Categories, highest retention value first.
const (
	CategoryGuidance    Category = "guidance"
	CategoryDiscussion  Category = "discussion"
	CategoryDaily       Category = "daily"
	CategorySuperficial Category = "superficial"
)

// SkipThreshold is the minimum clamped score a note must reach to be kept.
const SkipThreshold = 20

// Result is the transient classification attached to a note before the
// keep/skip decision. It is never persisted on its own.
type Result struct {
	QualityScore  int
	Category      Category
	ShouldSkip    bool
	CommentTarget int
	Reason        string
}

// Terms that signal guidance, logistics, or advice content.
var highValueTerms = []string{
	"攻略", "经验", "分享经验", "建议", "推荐", "总结", "详解",
	"申请", "签证", "租房", "找房", "兼职", "实习", "求职",
	"选课", "课程", "专业", "教授", "导师", "论文", "考试",
	"生活", "适应", "文化", "交流", "社交", "朋友", "心得",
	"费用", "预算", "省钱", "开销", "账单", "税", "保险",
	"行前", "准备", "清单", "注意", "避坑", "踩坑", "提醒",
	"问答", "Q&A", "QA", "求助", "咨询", "请教", "有人知道",
}

// Terms that signal superficial or lifestyle-feed content.
var lowValueTerms = []string{
	"自拍", "OOTD", "ootd", "穿搭", "今日穿搭", "打卡", "vlog", "VLOG",
	"日常", "分享日常", "随手拍", "美照", "自拍分享", "今日份",
	"颜值", "美女", "长腿", "身材", "化妆", "护肤", "种草",
	"探店", "美食", "下午茶", "咖啡", "奶茶",
}

// Marker terms whose presence promotes a high-value note from discussion to
// guidance.
var guidanceMarkers = []string{"攻略", "经验", "总结", "详解"}

// Tags considered on-domain for the flat relevance bonus.
var relevantTags = []string{"留学", "澳洲留学", "UQ", "昆士兰大学", "布里斯班"}

var (
	interrogativePattern = regexp.MustCompile(`[？?]`)
	serialDiaryPattern   = regexp.MustCompile(`(第\d+|Day\d+|\d+天)`)
)

// Classifier scores notes and filters comments.
type Classifier struct{}

// New constructs a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify scores one note. The returned score is clamped to [0, 100] and
// ShouldSkip is derived from the clamped value against SkipThreshold.
func (c *Classifier) Classify(n *note.Note) Result {
	fullText := n.Title + " " + n.Body + " " + strings.Join(n.Tags, " ")

	score := 0
	category := CategoryDaily
	var reasons []string

	highHits := countTermHits(fullText, highValueTerms)
	lowHits := countTermHits(fullText, lowValueTerms)

	switch {
	case highHits >= 3:
		score += 40
		category = CategoryDiscussion
		if containsAny(fullText, guidanceMarkers) {
			category = CategoryGuidance
		}
		reasons = append(reasons, fmt.Sprintf("high-value terms x%d", highHits))
	case highHits >= 2:
		score += 25
		category = CategoryDiscussion
		reasons = append(reasons, fmt.Sprintf("high-value terms x%d", highHits))
	case highHits >= 1:
		score += 10
	}

	switch {
	case lowHits >= 3:
		score -= 40
		category = CategorySuperficial
		reasons = append(reasons, fmt.Sprintf("low-value terms x%d", lowHits))
	case lowHits >= 2:
		score -= 30
		category = CategorySuperficial
		reasons = append(reasons, fmt.Sprintf("low-value terms x%d", lowHits))
	case lowHits >= 1:
		score -= 15
	}

	bodyLen := len([]rune(n.Body))
	switch {
	case bodyLen >= 800:
		score += 25
		reasons = append(reasons, fmt.Sprintf("long body (%d chars)", bodyLen))
	case bodyLen >= 500:
		score += 15
		reasons = append(reasons, fmt.Sprintf("long body (%d chars)", bodyLen))
	case bodyLen >= 200:
		score += 5
	case bodyLen < 50:
		score -= 25
		reasons = append(reasons, fmt.Sprintf("short body (%d chars)", bodyLen))
	}

	if n.CommentCount > 0 && n.LikeCount > 0 {
		ratio := float64(n.CommentCount) / float64(n.LikeCount)
		switch {
		case ratio > 0.15:
			score += 15
			reasons = append(reasons, fmt.Sprintf("high engagement (%.1f%% comment rate)", ratio*100))
		case ratio > 0.1:
			score += 10
			reasons = append(reasons, fmt.Sprintf("high engagement (%.1f%% comment rate)", ratio*100))
		}
	}

	if hasRelevantTag(n.Tags) {
		score += 15
		reasons = append(reasons, "relevant tag")
	}

	if interrogativePattern.MatchString(n.Title) {
		score += 10
		if category == CategoryDaily {
			category = CategoryDiscussion
		}
		reasons = append(reasons, "interrogative title")
	}

	if serialDiaryPattern.MatchString(n.Title) {
		score -= 20
		category = CategoryDaily
		reasons = append(reasons, "serialized diary title")
	}

	clamped := clamp(score, 0, 100)

	reason := "default"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, " | ")
	}

	return Result{
		QualityScore:  clamped,
		Category:      category,
		ShouldSkip:    clamped < SkipThreshold,
		CommentTarget: commentTarget(category, n.CommentCount),
		Reason:        reason,
	}
}

// commentTarget returns how many comments are worth retaining for a note of
// the given category. Guidance content keeps far more than superficial.
func commentTarget(category Category, commentCount int) int {
	if commentCount < 30 {
		switch category {
		case CategoryGuidance:
			return 20
		case CategoryDiscussion:
			return 15
		case CategoryDaily:
			return 10
		case CategorySuperficial:
			return 5
		default:
			return 10
		}
	}

	ratio := 0.5
	switch category {
	case CategoryGuidance:
		ratio = 0.8
	case CategoryDiscussion:
		ratio = 0.6
	case CategoryDaily:
		ratio = 0.3
	case CategorySuperficial:
		ratio = 0.1
	}
	return clamp(int(float64(commentCount)*ratio), 20, 500)
}

func countTermHits(text string, terms []string) int {
	hits := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			hits++
		}
	}
	return hits
}

func hasRelevantTag(tags []string) bool {
	for _, tag := range tags {
		for _, want := range relevantTags {
			if tag == want {
				return true
			}
		}
	}
	return false
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
