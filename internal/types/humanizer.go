package types

// HumanizerConfig bounds the cover letter critique/rewrite loop.
type HumanizerConfig struct {
	MinNaturalnessScore int  `json:"min_naturalness_score"`
	MaxAiRiskScore      int  `json:"max_ai_risk_score"`
	MaxRewritePasses    int  `json:"max_rewrite_passes"`
	DebugLogs           bool `json:"debug_logs"`
}

// CoverLetterSettings carries user preferences for a cover letter.
type CoverLetterSettings struct {
	Locale    string `json:"locale,omitempty"`
	Tone      string `json:"tone,omitempty"`
	MaxWords  int    `json:"max_words,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// Critique is the model's assessment of a cover letter draft.
type Critique struct {
	NaturalnessScore int      `json:"naturalness_score"`
	AiRiskScore      int      `json:"ai_risk_score"`
	SpecificityScore int      `json:"specificity_score"`
	LocaleFitScore   int      `json:"locale_fit_score"`
	Issues           []string `json:"issues"`
	TargetedFixes    []string `json:"targeted_fixes"`
}

// HumanizerPassState is the loop state between critique and rewrite.
type HumanizerPassState struct {
	Content     string    `json:"content"`
	SubjectLine string    `json:"subject_line"`
	Critique    *Critique `json:"critique,omitempty"`
	PassCount   int       `json:"pass_count"`
}

// HumanizeResult is the accepted cover letter after the loop stops.
type HumanizeResult struct {
	Content     string      `json:"content"`
	SubjectLine string      `json:"subject_line"`
	PassesUsed  int         `json:"passes_used"`
	Accepted    bool        `json:"accepted"`
	Final       *Critique   `json:"final_critique,omitempty"`
	Calls       []CallUsage `json:"calls,omitempty"`
}
