// Package scoring computes resume/vacancy match scores: the deterministic
// keyword fallback used when LLM scoring fails, and the detailed signal/evidence
// scoring pipeline with its lexical fallback.
package scoring

import (
	"math"

	"github.com/jonathan/resume-studio/internal/types"
)

// KeywordResult is a deterministic before/after keyword overlap score.
type KeywordResult struct {
	Before    int
	After     int
	Breakdown types.ScoreBreakdown
}

// KeywordMatchScore scores both resumes by keyword overlap with the vacancy:
// score = round(100 * matched / total) over the vacancy's Keywords, where a
// keyword matches when it is one of the resume's tokens. A vacancy without
// keywords scores 0. Identical inputs always give identical scores.
func KeywordMatchScore(beforeText, afterText, vacancyText string) KeywordResult {
	keywords := Keywords(vacancyText)
	beforeTokens := tokenSet(beforeText)
	afterTokens := tokenSet(afterText)

	breakdown := types.ScoreBreakdown{
		Version:       types.ScoreVersionFallbackKeyword,
		KeywordsTotal: len(keywords),
		MatchedBefore: []string{},
		MatchedAfter:  []string{},
		MissingAfter:  []string{},
	}
	for _, k := range keywords {
		if beforeTokens[k] {
			breakdown.MatchedBefore = append(breakdown.MatchedBefore, k)
		}
		if afterTokens[k] {
			breakdown.MatchedAfter = append(breakdown.MatchedAfter, k)
		} else {
			breakdown.MissingAfter = append(breakdown.MissingAfter, k)
		}
	}

	return KeywordResult{
		Before:    ratioScore(len(breakdown.MatchedBefore), len(keywords)),
		After:     ratioScore(len(breakdown.MatchedAfter), len(keywords)),
		Breakdown: breakdown,
	}
}

func ratioScore(matched, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(matched) / float64(total)))
}

// ClampScore bounds a score to 0..100.
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
