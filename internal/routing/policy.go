// Package routing resolves which model, strategy and generation settings serve a
// (role, scenario) pair, and normalizes routing assignment writes.
package routing

import (
	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/types"
)

// Policy holds the scenario-intrinsic routing rules for one scenario.
type Policy struct {
	Scenario           types.Scenario
	AllowRetryModel    bool
	AllowStrategyKey   bool
	DefaultMaxTokens   int
	DefaultTemperature float64
	ResponseFormat     types.ResponseFormat
}

// policies is the process-wide scenario catalog, in display order.
var policies = []Policy{
	{
		Scenario:           types.Scenario{Key: types.ScenarioResumeAdaptation, Label: "Resume adaptation", Description: "Tailor a base resume to a vacancy"},
		AllowRetryModel:    true,
		AllowStrategyKey:   true,
		DefaultMaxTokens:   4096,
		DefaultTemperature: 0.4,
		ResponseFormat:     types.ResponseFormatJSON,
	},
	{
		Scenario:         types.Scenario{Key: types.ScenarioResumeAdaptationScoring, Label: "Resume adaptation scoring", Description: "Before/after match score of an adapted resume"},
		DefaultMaxTokens: 1024,
		ResponseFormat:   types.ResponseFormatJSON,
	},
	{
		Scenario:         types.Scenario{Key: types.ScenarioResumeScoreDetails, Label: "Resume score details", Description: "Vacancy signal extraction and evidence matching"},
		AllowRetryModel:  true,
		DefaultMaxTokens: 2048,
		ResponseFormat:   types.ResponseFormatJSON,
	},
	{
		Scenario:         types.Scenario{Key: types.ScenarioResumeParse, Label: "Resume parse", Description: "Structure an uploaded resume"},
		AllowRetryModel:  true,
		DefaultMaxTokens: 4096,
		ResponseFormat:   types.ResponseFormatJSON,
	},
	{
		Scenario:           types.Scenario{Key: types.ScenarioCoverLetterGeneration, Label: "Cover letter generation", Description: "Draft a cover letter for a vacancy"},
		AllowRetryModel:    true,
		AllowStrategyKey:   true,
		DefaultMaxTokens:   2048,
		DefaultTemperature: 0.7,
		ResponseFormat:     types.ResponseFormatJSON,
	},
	{
		Scenario:         types.Scenario{Key: types.ScenarioCoverLetterCritique, Label: "Cover letter critique", Description: "Score a draft for naturalness and AI risk"},
		DefaultMaxTokens: 1024,
		ResponseFormat:   types.ResponseFormatJSON,
	},
	{
		Scenario:           types.Scenario{Key: types.ScenarioCoverLetterRewrite, Label: "Cover letter rewrite", Description: "Rewrite a draft against critique fixes"},
		AllowRetryModel:    true,
		AllowStrategyKey:   true,
		DefaultMaxTokens:   2048,
		DefaultTemperature: 0.6,
		ResponseFormat:     types.ResponseFormatJSON,
	},
}

// PolicyFor returns the policy for a scenario key.
func PolicyFor(key types.ScenarioKey) (Policy, bool) {
	for _, p := range policies {
		if p.Scenario.Key == key {
			return p, true
		}
	}
	return Policy{}, false
}

// Scenarios returns the scenario catalog.
func Scenarios() []types.Scenario {
	out := make([]types.Scenario, len(policies))
	for i, p := range policies {
		out[i] = p.Scenario
	}
	return out
}

// NormalizeAssignment validates an assignment write and applies the scenario
// policy: fields the scenario may not carry are cleared whatever was submitted,
// and an empty response format takes the scenario's format.
func NormalizeAssignment(a types.RoutingAssignment) (types.RoutingAssignment, error) {
	policy, ok := PolicyFor(a.Scenario)
	if !ok {
		return a, &ValidationError{Field: "scenario", Message: "unknown scenario " + string(a.Scenario)}
	}
	if a.Role != nil && !a.Role.Valid() {
		return a, &ValidationError{Field: "role", Message: "unknown role " + string(*a.Role)}
	}
	if a.ModelID == uuid.Nil {
		return a, &ValidationError{Field: "model_id", Message: "model_id is required"}
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return a, &ValidationError{Field: "temperature", Message: "temperature must be between 0 and 2"}
	}
	if a.MaxTokens < 0 {
		return a, &ValidationError{Field: "max_tokens", Message: "max_tokens must not be negative"}
	}

	switch a.ResponseFormat {
	case "":
		a.ResponseFormat = policy.ResponseFormat
	case types.ResponseFormatJSON, types.ResponseFormatText:
	default:
		return a, &ValidationError{Field: "response_format", Message: "unknown response format " + string(a.ResponseFormat)}
	}

	if !policy.AllowRetryModel {
		a.RetryModelID = nil
	}
	if !policy.AllowStrategyKey {
		a.StrategyKey = nil
	}
	if a.StrategyKey != nil && *a.StrategyKey == "" {
		a.StrategyKey = nil
	}
	if a.RetryModelID != nil && *a.RetryModelID == a.ModelID {
		a.RetryModelID = nil
	}
	return a, nil
}
