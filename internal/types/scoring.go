package types

// SignalType classifies a vacancy signal.
type SignalType string

// Signal types
const (
	SignalCoreRequirement SignalType = "core_requirement"
	SignalMustHave        SignalType = "must_have"
	SignalNiceToHave      SignalType = "nice_to_have"
	SignalResponsibility  SignalType = "responsibility"
)

// VacancySignal is one structured requirement extracted from a vacancy.
type VacancySignal struct {
	Name   string     `json:"name"`
	Type   SignalType `json:"type"`
	Weight float64    `json:"weight"`
}

// SignalEvidence compares one signal against the resume before and after tailoring.
type SignalEvidence struct {
	Signal         string     `json:"signal"`
	Type           SignalType `json:"type"`
	Weight         float64    `json:"weight"`
	StrengthBefore float64    `json:"strength_before"`
	StrengthAfter  float64    `json:"strength_after"`
	PresentBefore  bool       `json:"present_before"`
	PresentAfter   bool       `json:"present_after"`
	EvidenceBefore []string   `json:"evidence_before,omitempty"`
	EvidenceAfter  []string   `json:"evidence_after,omitempty"`
}

// ScoreDetails is the evidence-level breakdown of a resume against a vacancy.
type ScoreDetails struct {
	Version              string           `json:"version"`
	VacancyHash          string           `json:"vacancy_hash"`
	Signals              []VacancySignal  `json:"signals"`
	Matched              []SignalEvidence `json:"matched"`
	Missing              []SignalEvidence `json:"missing"`
	ScoreBefore          int              `json:"score_before"`
	ScoreAfter           int              `json:"score_after"`
	FallbackUsed         bool             `json:"fallback_used"`
	EvidenceFallbackUsed bool             `json:"evidence_fallback_used"`
}

// ScoreUsage reports how many LLM calls a detailed scoring run made.
type ScoreUsage struct {
	AttemptsUsed int         `json:"attempts_used"`
	Calls        []CallUsage `json:"calls,omitempty"`
}

// DetailedScoreResult is the output of the detailed score orchestrator.
type DetailedScoreResult struct {
	Details ScoreDetails `json:"details"`
	Usage   ScoreUsage   `json:"usage"`
}
