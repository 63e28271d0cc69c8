package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/types"
)

var (
	detailVacancy = types.Vacancy{Title: "Backend Engineer", Description: "Go, PostgreSQL and Kubernetes required. Terraform is a plus."}
	detailBefore  = &types.ResumeContent{Summary: "Backend engineer writing Go and PostgreSQL."}
	detailAfter   = &types.ResumeContent{
		Summary: "Backend engineer building Go services on Kubernetes.",
		Skills:  []string{"Go", "PostgreSQL", "Kubernetes"},
	}
	requester = types.Requester{Role: types.RolePublic}
)

func TestIsParseFailure(t *testing.T) {
	assert.True(t, IsParseFailure(errors.New("Failed to parse JSON response")))
	assert.True(t, IsParseFailure(&llm.ProviderError{Message: "invalid json in candidate"}))
	assert.True(t, IsParseFailure(errors.New("unexpected end of JSON input")))
	assert.False(t, IsParseFailure(&llm.ProviderError{Code: "503", Message: "unavailable"}))
	assert.False(t, IsParseFailure(nil))
}

func TestScoreDetails_ParseFailureFallsBackAfterOneAttempt(t *testing.T) {
	caller := &MockCaller{
		CallFunc: func(context.Context, llm.Request, llm.CallOptions) (*llm.Response, error) {
			return nil, &llm.ProviderError{Provider: "gemini", Message: "Failed to parse JSON from model output"}
		},
	}
	scorer := NewScorer(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, detailVacancy, nil, requester)
	require.NoError(t, err)

	assert.Equal(t, types.ScoreVersionDeterministic, res.Details.Version)
	assert.True(t, res.Details.FallbackUsed)
	assert.Equal(t, 1, res.Usage.AttemptsUsed)
	assert.Len(t, caller.Requests(), 1)

	matched := map[string]bool{}
	for _, m := range res.Details.Matched {
		matched[m.Signal] = true
	}
	for _, kw := range []string{"go", "postgresql", "kubernetes"} {
		assert.True(t, matched[kw], kw)
	}
	assert.False(t, matched["terraform"])
}

func TestScoreDetails_TruncatedSignalsRepairedInOneAttempt(t *testing.T) {
	truncated := `{"signals": [{"name": "Go", "type": "must_have", "weight": 0.9}, {"name": "PostgreSQL", "type": "must_have", "weight": 0.7}, {"name": "Kubernetes", "type": "core_requirement", "weight": 0.6`
	caller := &MockCaller{
		CallFunc: func(context.Context, llm.Request, llm.CallOptions) (*llm.Response, error) {
			return textResponse(truncated), nil
		},
	}
	scorer := NewScorer(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, detailVacancy, nil, requester)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Usage.AttemptsUsed)
	assert.Equal(t, types.ScoreVersionLLMSignals, res.Details.Version)
	assert.False(t, res.Details.FallbackUsed)
	require.Len(t, res.Usage.Calls, 1)

	var matched []string
	for _, m := range res.Details.Matched {
		matched = append(matched, m.Signal)
		assert.True(t, m.PresentAfter)
		assert.NotEmpty(t, m.EvidenceAfter)
	}
	assert.Equal(t, []string{"Go", "PostgreSQL", "Kubernetes"}, matched)
	assert.Empty(t, res.Details.Missing)
}

func TestScoreDetails_EvidenceCallForUnresolvedSignals(t *testing.T) {
	caller := &MockCaller{}
	caller.CallFunc = func(_ context.Context, req llm.Request, _ llm.CallOptions) (*llm.Response, error) {
		if strings.Contains(req.Prompt, "Extract the hiring signals") {
			return textResponse(`{"signals": [{"name": "Go", "type": "must_have", "weight": 1}, {"name": "Infrastructure as Code", "type": "nice_to_have", "weight": 0.5}]}`), nil
		}
		assert.Contains(t, req.Prompt, "- Infrastructure as Code (nice_to_have)")
		assert.NotContains(t, req.Prompt, "- Go (must_have)")
		return textResponse(`{"evidence": [{"signal": "infrastructure as code", "strengthBefore": 0.1, "strengthAfter": 0.6, "presentBefore": false, "presentAfter": true, "evidenceAfter": ["Kubernetes"]}]}`), nil
	}
	scorer := NewScorer(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, detailVacancy, nil, requester)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Usage.AttemptsUsed)
	assert.False(t, res.Details.EvidenceFallbackUsed)
	require.Len(t, res.Details.Matched, 2)
	iac := res.Details.Matched[1]
	assert.Equal(t, "Infrastructure as Code", iac.Signal)
	assert.InDelta(t, 0.6, iac.StrengthAfter, 1e-9)
	// weights 1 and 0.5: before (1 + 0.05)/1.5, after (1 + 0.3)/1.5
	assert.Equal(t, 70, res.Details.ScoreBefore)
	assert.Equal(t, 87, res.Details.ScoreAfter)
}

func TestScoreDetails_EvidenceFailureKeepsLexical(t *testing.T) {
	calls := 0
	caller := &MockCaller{
		CallFunc: func(context.Context, llm.Request, llm.CallOptions) (*llm.Response, error) {
			calls++
			if calls == 1 {
				return textResponse(`{"signals": [{"name": "Go", "weight": 1}, {"name": "Terraform", "weight": 1}]}`), nil
			}
			return nil, &llm.ProviderError{Code: llm.CodeTimeout, Message: "call timed out"}
		},
	}
	scorer := NewScorer(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, detailVacancy, nil, requester)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Usage.AttemptsUsed)
	assert.True(t, res.Details.EvidenceFallbackUsed)
	assert.False(t, res.Details.FallbackUsed)
	assert.Equal(t, types.ScoreVersionLLMSignals, res.Details.Version)
	require.Len(t, res.Details.Missing, 1)
	assert.Equal(t, "Terraform", res.Details.Missing[0].Signal)
}

func TestScoreDetails_AttemptBudgetRetriesWithLargerBudget(t *testing.T) {
	var maxTokens []int
	caller := &MockCaller{
		CallFunc: func(_ context.Context, req llm.Request, _ llm.CallOptions) (*llm.Response, error) {
			maxTokens = append(maxTokens, req.MaxTokens)
			return nil, errors.New("invalid JSON from provider")
		},
	}
	scorer := NewScorer(caller, nil, Options{FallbackModel: fallbackModel, AttemptBudget: 3})

	res, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, detailVacancy, nil, requester)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Usage.AttemptsUsed)
	assert.Equal(t, []int{2048, 4096, 8192}, maxTokens)
	assert.Equal(t, types.ScoreVersionDeterministic, res.Details.Version)
}

func TestScoreDetails_ReusesExistingSignals(t *testing.T) {
	caller := &MockCaller{
		CallFunc: func(context.Context, llm.Request, llm.CallOptions) (*llm.Response, error) {
			t.Fatal("no call expected")
			return nil, nil
		},
	}
	existing := &types.ScoreDetails{
		Version:     types.ScoreVersionLLMSignals,
		VacancyHash: VacancyHash(detailVacancy),
		Signals:     []types.VacancySignal{{Name: "Kubernetes", Weight: 1}},
	}
	scorer := NewScorer(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, detailVacancy, existing, requester)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Usage.AttemptsUsed)
	require.Len(t, res.Details.Matched, 1)
	assert.Equal(t, 0, res.Details.ScoreBefore)
	assert.Equal(t, 100, res.Details.ScoreAfter)
}

func TestScoreDetails_SignalCache(t *testing.T) {
	store := &MockSignalStore{}
	caller := &MockCaller{
		CallFunc: func(context.Context, llm.Request, llm.CallOptions) (*llm.Response, error) {
			return textResponse(`{"signals": [{"name": "Go", "weight": 1}]}`), nil
		},
	}
	scorer := NewScorer(caller, nil, Options{FallbackModel: fallbackModel, Signals: store})

	first, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, detailVacancy, nil, requester)
	require.NoError(t, err)
	second, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, detailVacancy, nil, requester)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Usage.AttemptsUsed)
	assert.Equal(t, 0, second.Usage.AttemptsUsed)
	assert.Equal(t, 1, store.puts)
	assert.Len(t, caller.Requests(), 1)
}

func TestToSignals(t *testing.T) {
	var p signalsPayload
	p.Signals = append(p.Signals,
		struct {
			Name   string  `json:"name"`
			Type   string  `json:"type"`
			Weight float64 `json:"weight"`
		}{Name: " Go ", Type: "bogus", Weight: 3},
		struct {
			Name   string  `json:"name"`
			Type   string  `json:"type"`
			Weight float64 `json:"weight"`
		}{Name: "go", Type: "must_have"},
		struct {
			Name   string  `json:"name"`
			Type   string  `json:"type"`
			Weight float64 `json:"weight"`
		}{Name: ""},
	)

	got := toSignals(p)
	require.Len(t, got, 1)
	assert.Equal(t, "Go", got[0].Name)
	assert.Equal(t, types.SignalCoreRequirement, got[0].Type)
	assert.InDelta(t, 1.0, got[0].Weight, 1e-9)
}

func TestScoreDetails_HTMLVacancyStrippedEverywhere(t *testing.T) {
	htmlVacancy := types.Vacancy{
		Title:       "Backend",
		Description: "<ul><li>Go</li><li>Kubernetes</li></ul><div>PostgreSQL</div>",
	}
	caller := &MockCaller{
		CallFunc: func(context.Context, llm.Request, llm.CallOptions) (*llm.Response, error) {
			return nil, &llm.ProviderError{Provider: "gemini", Message: "invalid json in candidate"}
		},
	}
	scorer := NewScorer(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := scorer.ScoreDetails(context.Background(), detailBefore, detailAfter, htmlVacancy, nil, requester)
	require.NoError(t, err)

	require.Len(t, caller.Requests(), 1)
	prompt := caller.Requests()[0].Prompt
	assert.Contains(t, prompt, "Go\nKubernetes\nPostgreSQL")
	assert.NotContains(t, prompt, "<li>")

	for _, s := range res.Details.Signals {
		assert.NotContains(t, []string{"ul", "li", "div"}, s.Name)
	}
	assert.True(t, res.Details.FallbackUsed)
}
