package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Score breakdown versions identify which scoring method produced a score.
const (
	ScoreVersionLLM             = "llm-v1"
	ScoreVersionFallbackKeyword = "fallback-keyword-v1"
	ScoreVersionLLMSignals      = "llm-signals-v1"
	ScoreVersionDeterministic   = "deterministic-v1"
)

// ResumeContent is the structured body of a resume.
type ResumeContent struct {
	Title      string            `json:"title,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Experience []ExperienceEntry `json:"experience,omitempty"`
	Skills     []string          `json:"skills,omitempty"`
	Education  []string          `json:"education,omitempty"`
}

// ExperienceEntry is one position on a resume.
type ExperienceEntry struct {
	Company string   `json:"company"`
	Role    string   `json:"role"`
	Period  string   `json:"period,omitempty"`
	Bullets []string `json:"bullets,omitempty"`
}

// Text flattens the resume into plain text for lexical matching and prompts.
func (r *ResumeContent) Text() string {
	if r == nil {
		return ""
	}

	var sb strings.Builder
	writeLine := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}

	writeLine(r.Title)
	writeLine(r.Summary)
	for _, exp := range r.Experience {
		writeLine(fmt.Sprintf("%s, %s %s", exp.Role, exp.Company, exp.Period))
		for _, b := range exp.Bullets {
			writeLine("- " + b)
		}
	}
	if len(r.Skills) > 0 {
		writeLine("Skills: " + strings.Join(r.Skills, ", "))
	}
	for _, e := range r.Education {
		writeLine(e)
	}

	return strings.TrimSpace(sb.String())
}

// Vacancy is the target job posting.
type Vacancy struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description"`
}

// Requester identifies who a generation runs for.
type Requester struct {
	Role   Role      `json:"role"`
	UserID uuid.UUID `json:"user_id"`
}

// SharedContext is a reusable resume+vacancy prompt fragment built once per request.
type SharedContext struct {
	Prompt             string `json:"prompt"`
	CacheTokenEstimate int    `json:"cache_token_estimate"`
}

// CallUsage is the provider/usage metadata of one LLM call.
type CallUsage struct {
	Scenario          ScenarioKey `json:"scenario"`
	Provider          string      `json:"provider"`
	ProviderType      string      `json:"provider_type"`
	Model             string      `json:"model"`
	InputTokens       int         `json:"input_tokens"`
	OutputTokens      int         `json:"output_tokens"`
	CachedInputTokens int         `json:"cached_input_tokens,omitempty"`
	TokensUsed        int         `json:"tokens_used"`
	Cost              float64     `json:"cost"`
	DurationMs        int64       `json:"duration_ms"`
}

// MatchScoring holds the before/after match scores parsed from an LLM scoring call.
type MatchScoring struct {
	MatchScoreBefore int      `json:"match_score_before"`
	MatchScoreAfter  int      `json:"match_score_after"`
	Strengths        []string `json:"strengths,omitempty"`
	Gaps             []string `json:"gaps,omitempty"`
}

// ScoreBreakdown explains a match score pair and tags the method that produced it.
type ScoreBreakdown struct {
	Version       string   `json:"version"`
	KeywordsTotal int      `json:"keywords_total,omitempty"`
	MatchedBefore []string `json:"matched_before,omitempty"`
	MatchedAfter  []string `json:"matched_after,omitempty"`
	MissingAfter  []string `json:"missing_after,omitempty"`
	Strengths     []string `json:"strengths,omitempty"`
	Gaps          []string `json:"gaps,omitempty"`
}

// GenerationResult is the output of one resume tailoring run.
type GenerationResult struct {
	ID                  uuid.UUID      `json:"id"`
	Content             ResumeContent  `json:"content"`
	MatchScoreBefore    int            `json:"match_score_before"`
	MatchScoreAfter     int            `json:"match_score_after"`
	ScoreBreakdown      ScoreBreakdown `json:"score_breakdown"`
	Scoring             *MatchScoring  `json:"scoring"`
	ScoringFallbackUsed bool           `json:"scoring_fallback_used"`
	StrategyKey         string         `json:"strategy_key,omitempty"`
	Calls               []CallUsage    `json:"calls"`
	CreatedAt           time.Time      `json:"created_at"`

	// UserID is the owner recorded by the result store; uuid.Nil for anonymous runs.
	UserID uuid.UUID `json:"-"`
}

// CoverLetter is a generated cover letter.
type CoverLetter struct {
	SubjectLine string      `json:"subject_line"`
	Content     string      `json:"content"`
	PassesUsed  int         `json:"passes_used"`
	Calls       []CallUsage `json:"calls"`
}

// LLMCallRecord is one ledger row describing an LLM call, successful or not.
type LLMCallRecord struct {
	ID                uuid.UUID   `json:"id"`
	Scenario          ScenarioKey `json:"scenario"`
	Role              Role        `json:"role"`
	UserID            uuid.UUID   `json:"user_id"`
	Provider          string      `json:"provider"`
	ProviderType      string      `json:"provider_type"`
	Model             string      `json:"model"`
	InputTokens       int         `json:"input_tokens"`
	OutputTokens      int         `json:"output_tokens"`
	CachedInputTokens int         `json:"cached_input_tokens"`
	Cost              float64     `json:"cost"`
	DurationMs        int64       `json:"duration_ms"`
	Success           bool        `json:"success"`
	ErrorCode         string      `json:"error_code,omitempty"`
	ErrorMessage      string      `json:"error_message,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}
