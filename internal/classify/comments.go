package classify

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/Harris404/Mimic-Red/internal/note"
)

// Boilerplate acknowledgments that carry no information.
var uselessCommentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[好哇哦啊呀嗯是的对耶额哈]+$`),
	regexp.MustCompile(`^[!！？?。.]+$`),
	regexp.MustCompile(`^赞+$`),
	regexp.MustCompile(`^(?:👍)+$`),
	regexp.MustCompile(`^(?:❤️)+$`),
	regexp.MustCompile(`^美+$`),
	regexp.MustCompile(`^(?:好看)+$`),
	regexp.MustCompile(`^(?:羡慕)+$`),
	regexp.MustCompile(`^(?:加油)+$`),
	regexp.MustCompile(`^哇+$`),
	regexp.MustCompile(`^(?:可以)+$`),
}

// Phrases that mark a short comment as still worth keeping.
var valuePhrases = []string{
	"推荐", "建议", "可以试试", "我觉得", "个人经验", "分享",
	"补充", "同意", "谢谢", "感谢", "有用", "赞同",
}

var (
	exclamatoryPattern = regexp.MustCompile(`[！!]`)
)

const identicalRunLimit = 7

// IsValuable decides whether a single comment is worth retaining and names
// the deciding rule.
func (c *Classifier) IsValuable(cm note.Comment) (bool, string) {
	text := strings.TrimSpace(cm.Text)
	if text == "" {
		return false, "empty"
	}

	for _, pattern := range uselessCommentPatterns {
		if pattern.MatchString(text) {
			return false, "boilerplate"
		}
	}

	if emojiOnly(text) {
		return false, "emoji only"
	}

	if hasIdenticalRun(text, identicalRunLimit) {
		return false, "repeated characters"
	}

	runes := len([]rune(text))
	switch {
	case cm.LikeCount >= 3:
		return true, "high likes"
	case runes >= 10:
		return true, "sufficient length"
	case containsAny(text, valuePhrases):
		return true, "value phrase"
	case interrogativePattern.MatchString(text):
		return true, "interrogative"
	case exclamatoryPattern.MatchString(text) && runes >= 5:
		return true, "exclamatory"
	}
	if runes < 5 {
		return false, "too short"
	}
	return true, "kept"
}

// FilterStats summarizes one FilterComments pass.
type FilterStats struct {
	Total    int
	Kept     int
	Filtered int
}

// FilterComments drops valueless comments, orders the remainder by
// (like count, text length) descending, and caps the set at target.
func (c *Classifier) FilterComments(comments []note.Comment, target int) ([]note.Comment, FilterStats) {
	if len(comments) == 0 {
		return nil, FilterStats{}
	}
	if target <= 0 {
		target = note.MaxComments
	}

	kept := make([]note.Comment, 0, len(comments))
	for _, cm := range comments {
		if ok, _ := c.IsValuable(cm); ok {
			kept = append(kept, cm)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.LikeCount != b.LikeCount {
			return a.LikeCount > b.LikeCount
		}
		return len([]rune(a.Text)) > len([]rune(b.Text))
	})

	if len(kept) > target {
		kept = kept[:target]
	}
	return kept, FilterStats{
		Total:    len(comments),
		Kept:     len(kept),
		Filtered: len(comments) - len(kept),
	}
}

// emojiOnly reports whether the text contains at least one emoji and no
// letters or digits at all.
func emojiOnly(text string) bool {
	emoji := 0
	word := 0
	for _, r := range text {
		switch {
		case r >= 0x1F000 && r <= 0x1F9FF:
			emoji++
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			word++
		}
	}
	return emoji > 0 && word == 0
}

// hasIdenticalRun reports whether any rune repeats limit or more times in a
// row. Regexp backreferences are unavailable here, so the scan is manual.
func hasIdenticalRun(text string, limit int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= limit {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
