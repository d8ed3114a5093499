package enrichment

import (
	"strings"

	"github.com/poiesic/nbharvest/core"
)

var (
	introductoryKeywords = []string{"intro", "beginner", "basics", "getting started", "first steps", "fundamentals", "101"}
	advancedKeywords     = []string{"advanced", "optimization", "in-depth", "expert", "graduate"}
)

// CourseLevelFor estimates difficulty from keywords in the full notebook text.
// Introductory keywords are checked before advanced ones; no match is intermediate.
func CourseLevelFor(text string) core.CourseLevel {
	lower := strings.ToLower(text)
	if containsAny(lower, introductoryKeywords) {
		return core.CourseLevelIntroductory
	}
	if containsAny(lower, advancedKeywords) {
		return core.CourseLevelAdvanced
	}
	return core.CourseLevelIntermediate
}

// NormalizeSequencePosition maps a free-text answer onto a sequence position.
// "beginning" wins over "end" when both appear.
func NormalizeSequencePosition(answer string) core.SequencePosition {
	lower := strings.ToLower(answer)
	switch {
	case strings.Contains(lower, "beginning"):
		return core.SequenceBeginning
	case strings.Contains(lower, "end"):
		return core.SequenceEnd
	default:
		return core.SequenceMiddle
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
