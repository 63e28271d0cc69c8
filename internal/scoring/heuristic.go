package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"

	"github.com/jonathan/resume-studio/internal/sharedctx"
	"github.com/jonathan/resume-studio/internal/types"
)

// maxEvidenceLines bounds the evidence quotes kept per signal and resume.
const maxEvidenceLines = 2

// VacancyHash identifies a vacancy's content for signal reuse.
func VacancyHash(vacancy types.Vacancy) string {
	h := sha256.New()
	h.Write([]byte(normalizeSpace(vacancy.Title)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeSpace(vacancy.Description)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// vacancyPlainText is the vacancy title and description with any markup stripped.
func vacancyPlainText(vacancy types.Vacancy) string {
	return strings.TrimSpace(vacancy.Title + "\n" + sharedctx.VacancyText(vacancy.Description))
}

// KeywordSignals derives signals from vacancy keywords when no extracted
// signals are available.
func KeywordSignals(vacancyText string) []types.VacancySignal {
	keywords := Keywords(vacancyText)
	signals := make([]types.VacancySignal, len(keywords))
	for i, k := range keywords {
		signals[i] = types.VacancySignal{Name: k, Type: types.SignalCoreRequirement, Weight: 1}
	}
	return signals
}

// LexicalEvidence compares one signal against both resumes by verbatim,
// case-insensitive phrase matching.
func LexicalEvidence(signal types.VacancySignal, beforeText, afterText string) types.SignalEvidence {
	ev := types.SignalEvidence{
		Signal: signal.Name,
		Type:   signal.Type,
		Weight: signal.Weight,
	}
	if containsPhrase(beforeText, signal.Name) {
		ev.PresentBefore = true
		ev.StrengthBefore = 1
		ev.EvidenceBefore = evidenceLines(beforeText, signal.Name, maxEvidenceLines)
	}
	if containsPhrase(afterText, signal.Name) {
		ev.PresentAfter = true
		ev.StrengthAfter = 1
		ev.EvidenceAfter = evidenceLines(afterText, signal.Name, maxEvidenceLines)
	}
	return ev
}

// HeuristicDetails computes score details purely from lexical overlap. When
// signals is empty they are derived from the vacancy keywords. Every signal
// found verbatim in the after text is matched.
func HeuristicDetails(beforeText, afterText string, vacancy types.Vacancy, signals []types.VacancySignal) types.ScoreDetails {
	if len(signals) == 0 {
		signals = KeywordSignals(vacancyPlainText(vacancy))
	}

	evidence := make([]types.SignalEvidence, len(signals))
	for i, s := range signals {
		evidence[i] = LexicalEvidence(s, beforeText, afterText)
	}

	details := Summarize(evidence)
	details.Version = types.ScoreVersionDeterministic
	details.VacancyHash = VacancyHash(vacancy)
	details.Signals = signals
	details.FallbackUsed = true
	return details
}

// Summarize splits evidence into matched and missing and computes the weighted
// before/after scores. Signals without a positive weight count as weight 1.
func Summarize(evidence []types.SignalEvidence) types.ScoreDetails {
	details := types.ScoreDetails{
		Matched: []types.SignalEvidence{},
		Missing: []types.SignalEvidence{},
	}

	var total, before, after float64
	for _, ev := range evidence {
		w := ev.Weight
		if w <= 0 || math.IsNaN(w) {
			w = 1
		}
		total += w
		before += w * clampUnit(ev.StrengthBefore)
		after += w * clampUnit(ev.StrengthAfter)

		if ev.PresentAfter {
			details.Matched = append(details.Matched, ev)
		} else {
			details.Missing = append(details.Missing, ev)
		}
	}

	if total > 0 {
		details.ScoreBefore = ClampScore(100 * before / total)
		details.ScoreAfter = ClampScore(100 * after / total)
	}
	return details
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func sameSignal(a, b string) bool {
	return normalizeSpace(a) == normalizeSpace(b)
}

func signalNames(signals []types.VacancySignal) string {
	var sb strings.Builder
	for _, s := range signals {
		sb.WriteString("- ")
		sb.WriteString(s.Name)
		if s.Type != "" {
			sb.WriteString(" (" + string(s.Type) + ")")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
