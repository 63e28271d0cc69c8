package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/humanizer"
	"github.com/jonathan/resume-studio/internal/jsonfix"
	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/types"
)

const adaptedJSON = `{
  "title": "Backend Engineer",
  "summary": "Backend engineer shipping Go services on Kubernetes with PostgreSQL.",
  "experience": [{"company": "Acme", "role": "Engineer", "period": "2020-2024", "bullets": ["Ran Go services on Kubernetes"]}],
  "skills": ["Go", "Kubernetes", "PostgreSQL"]
}`

var (
	baseResume = &types.ResumeContent{
		Title:   "Engineer",
		Summary: "Backend engineer writing Go services.",
		Experience: []types.ExperienceEntry{
			{Company: "Acme", Role: "Engineer", Period: "2020-2024", Bullets: []string{"Ran Go services"}},
		},
	}
	vacancy   = types.Vacancy{Title: "Backend Engineer", Description: "Go, Kubernetes and PostgreSQL."}
	requester = types.Requester{Role: types.RoleFriend, UserID: uuid.New()}

	fallbackModel = &types.Model{Provider: "gemini", ModelKey: "fallback-flash", Status: types.ModelStatusActive, MaxOutputTokens: 8192}
)

type catalogModels struct {
	primary *types.Model
	retry   *types.Model
}

// newRoutedCatalog routes adaptation to a primary model with a retry model
// and the given strategy key.
func newRoutedCatalog(t *testing.T, strategy string) (*routing.Resolver, catalogModels) {
	t.Helper()
	ctx := context.Background()
	c := routing.NewMemoryCatalog()

	primary, err := c.CreateModel(ctx, types.Model{Provider: "gemini", ModelKey: "gemini-2.5-pro", DisplayName: "Pro", Status: types.ModelStatusActive, MaxOutputTokens: 8192})
	require.NoError(t, err)
	retry, err := c.CreateModel(ctx, types.Model{Provider: "anthropic", ModelKey: "claude-sonnet-4-5", DisplayName: "Sonnet", Status: types.ModelStatusActive, MaxOutputTokens: 8192})
	require.NoError(t, err)

	a := types.RoutingAssignment{ModelID: primary.ID, RetryModelID: &retry.ID}
	if strategy != "" {
		a.StrategyKey = &strategy
	}
	_, err = c.UpsertScenarioDefault(ctx, types.ScenarioResumeAdaptation, a)
	require.NoError(t, err)
	_, err = c.UpsertScenarioDefault(ctx, types.ScenarioResumeAdaptationScoring, types.RoutingAssignment{ModelID: primary.ID})
	require.NoError(t, err)

	return routing.NewResolver(c), catalogModels{primary: primary, retry: retry}
}

func TestGenerateResume_ScoringFailureUsesKeywordFallback(t *testing.T) {
	caller := &MockCaller{AdaptFunc: respond(adaptedJSON), ScoreFunc: fail("scoring backend unavailable")}
	gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
	require.NoError(t, err)

	assert.True(t, res.ScoringFallbackUsed)
	assert.Nil(t, res.Scoring)
	assert.Equal(t, types.ScoreVersionFallbackKeyword, res.ScoreBreakdown.Version)
	assert.GreaterOrEqual(t, res.MatchScoreAfter, res.MatchScoreBefore)

	// keywords: backend, engineer, go, kubernetes, postgresql
	assert.Equal(t, 60, res.MatchScoreBefore)
	assert.Equal(t, 100, res.MatchScoreAfter)
	assert.Empty(t, res.ScoreBreakdown.MissingAfter)
	assert.Equal(t, "Backend Engineer", res.Content.Title)
	assert.Len(t, res.Calls, 1, "the failed scoring call returned no response")
}

func TestGenerateResume_ScoringFailureOnBadOutput(t *testing.T) {
	caller := &MockCaller{AdaptFunc: respond(adaptedJSON), ScoreFunc: respond(`{"strengths": ["Go"]}`)}
	gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
	require.NoError(t, err)

	assert.True(t, res.ScoringFallbackUsed)
	assert.Nil(t, res.Scoring)
	assert.Equal(t, types.ScoreVersionFallbackKeyword, res.ScoreBreakdown.Version)
	assert.Len(t, res.Calls, 2)
}

func TestGenerateResume_ScoringSuccessEmbedsStrategy(t *testing.T) {
	resolver, models := newRoutedCatalog(t, "quality")
	caller := &MockCaller{
		AdaptFunc: respond(adaptedJSON),
		ScoreFunc: respond(`{"matchScoreBefore": 48, "matchScoreAfter": 130, "strengths": ["Go"], "gaps": ["Terraform"]}`),
	}
	gen := NewGenerator(caller, resolver, Options{FallbackModel: fallbackModel})

	res, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
	require.NoError(t, err)

	assert.False(t, res.ScoringFallbackUsed)
	require.NotNil(t, res.Scoring)
	assert.Equal(t, 48, res.Scoring.MatchScoreBefore)
	assert.Equal(t, 100, res.Scoring.MatchScoreAfter)
	assert.Equal(t, 48, res.MatchScoreBefore)
	assert.Equal(t, 100, res.MatchScoreAfter)
	assert.Equal(t, types.ScoreVersionLLM, res.ScoreBreakdown.Version)
	assert.Equal(t, []string{"Terraform"}, res.ScoreBreakdown.Gaps)
	assert.Equal(t, "quality", res.StrategyKey)

	adapt := caller.RequestsFor(types.ScenarioResumeAdaptation)
	require.Len(t, adapt, 1)
	assert.Contains(t, adapt[0].Prompt, "Strategy: quality")
	assert.Contains(t, adapt[0].Prompt, "<candidate_resume>")
	assert.Equal(t, models.primary.ID, adapt[0].Model.ID)

	score := caller.RequestsFor(types.ScenarioResumeAdaptationScoring)
	require.Len(t, score, 1)
	assert.Contains(t, score[0].Prompt, "<adapted_resume>")
	assert.Contains(t, score[0].Prompt, "Kubernetes with PostgreSQL")
	assert.Len(t, res.Calls, 2)
}

func TestGenerateResume_NoStrategyNoDirective(t *testing.T) {
	resolver, _ := newRoutedCatalog(t, "")
	caller := &MockCaller{AdaptFunc: respond(adaptedJSON), ScoreFunc: respond(`{"matchScoreBefore": 40, "matchScoreAfter": 80}`)}
	gen := NewGenerator(caller, resolver, Options{FallbackModel: fallbackModel})

	_, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
	require.NoError(t, err)
	assert.NotContains(t, caller.RequestsFor(types.ScenarioResumeAdaptation)[0].Prompt, "Strategy:")
}

func TestGenerateResume_ProviderErrorRetriesOnRetryModel(t *testing.T) {
	resolver, models := newRoutedCatalog(t, "")
	calls := 0
	caller := &MockCaller{
		AdaptFunc: func(req llm.Request) (*llm.Response, error) {
			calls++
			if calls == 1 {
				return nil, &llm.ProviderError{Provider: "gemini", Code: llm.CodeTimeout, Message: "call timed out"}
			}
			return jsonResponse(req, adaptedJSON), nil
		},
		ScoreFunc: respond(`{"matchScoreBefore": 40, "matchScoreAfter": 80}`),
	}
	gen := NewGenerator(caller, resolver, Options{FallbackModel: fallbackModel})

	res, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
	require.NoError(t, err)

	adapt := caller.RequestsFor(types.ScenarioResumeAdaptation)
	require.Len(t, adapt, 2)
	assert.Equal(t, models.primary.ID, adapt[0].Model.ID)
	assert.Equal(t, models.retry.ID, adapt[1].Model.ID)
	assert.Equal(t, "claude-sonnet-4-5", res.Calls[0].Model)
}

func TestGenerateResume_TruncatedOutputRetriesWithLargerBudget(t *testing.T) {
	calls := 0
	caller := &MockCaller{
		AdaptFunc: func(req llm.Request) (*llm.Response, error) {
			calls++
			if calls == 1 {
				resp := jsonResponse(req, `{"summary": `)
				resp.Truncated = true
				return resp, nil
			}
			return jsonResponse(req, adaptedJSON), nil
		},
		ScoreFunc: respond(`{"matchScoreBefore": 40, "matchScoreAfter": 80}`),
	}
	gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel})

	res, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
	require.NoError(t, err)

	adapt := caller.RequestsFor(types.ScenarioResumeAdaptation)
	require.Len(t, adapt, 2)
	assert.Equal(t, 4096, adapt[0].MaxTokens)
	assert.Equal(t, 8192, adapt[1].MaxTokens)
	assert.NotContains(t, adapt[0].Prompt, "was cut off")
	assert.Contains(t, adapt[1].Prompt, "Your previous answer was cut off")
	assert.Len(t, res.Calls, 3, "both adaptation calls and the scoring call are recorded")
}

func TestGenerateResume_AdaptationFailureIsFatal(t *testing.T) {
	t.Run("provider error after retry model", func(t *testing.T) {
		resolver, _ := newRoutedCatalog(t, "")
		caller := &MockCaller{AdaptFunc: fail("overloaded"), ScoreFunc: respond(`{"matchScoreBefore": 1, "matchScoreAfter": 2}`)}
		gen := NewGenerator(caller, resolver, Options{FallbackModel: fallbackModel})

		res, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
		require.Error(t, err)
		assert.Nil(t, res)

		var gerr *Error
		require.True(t, errors.As(err, &gerr))
		assert.Equal(t, StageAdaptation, gerr.Stage)
		assert.True(t, llm.IsProviderError(err))
		assert.Len(t, caller.RequestsFor(types.ScenarioResumeAdaptation), 2)
		assert.Empty(t, caller.RequestsFor(types.ScenarioResumeAdaptationScoring))
	})

	t.Run("provider error without retry model", func(t *testing.T) {
		caller := &MockCaller{AdaptFunc: fail("overloaded")}
		gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel})

		_, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
		require.Error(t, err)
		assert.Len(t, caller.RequestsFor(types.ScenarioResumeAdaptation), 1)
	})

	t.Run("malformed output", func(t *testing.T) {
		caller := &MockCaller{AdaptFunc: respond("I cannot help with that.")}
		gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel})

		_, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
		require.Error(t, err)
		assert.True(t, jsonfix.IsDecodeError(err))
		assert.Len(t, caller.RequestsFor(types.ScenarioResumeAdaptation), 1)
	})
}

func TestGenerateResume_UnresolvedRoutingUsesFallbackModel(t *testing.T) {
	resolver := routing.NewResolver(routing.NewMemoryCatalog())
	caller := &MockCaller{AdaptFunc: respond(adaptedJSON), ScoreFunc: respond(`{"matchScoreBefore": 40, "matchScoreAfter": 80}`)}
	gen := NewGenerator(caller, resolver, Options{FallbackModel: fallbackModel})

	_, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
	require.NoError(t, err)

	adapt := caller.RequestsFor(types.ScenarioResumeAdaptation)
	require.Len(t, adapt, 1)
	assert.Equal(t, "fallback-flash", adapt[0].Model.ModelKey)
	assert.InDelta(t, 0.4, adapt[0].Temperature, 1e-9)
}

func TestGenerateResume_KeepsExistingID(t *testing.T) {
	caller := &MockCaller{AdaptFunc: respond(adaptedJSON), ScoreFunc: respond(`{"matchScoreBefore": 40, "matchScoreAfter": 80}`)}
	gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel})
	existing := &types.GenerationResult{
		ID:      uuid.New(),
		Content: types.ResumeContent{Title: "Stale Title", Summary: "Previously adapted summary about COBOL."},
	}

	res, err := gen.GenerateResume(context.Background(), baseResume, vacancy, existing, requester)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.ID)
	assert.Equal(t, "Backend Engineer", res.Content.Title)

	// the base resume, not the stored adaptation, is what gets tailored again
	adapt := caller.RequestsFor(types.ScenarioResumeAdaptation)
	require.Len(t, adapt, 1)
	assert.Contains(t, adapt[0].Prompt, "Backend engineer writing Go services.")
	assert.NotContains(t, adapt[0].Prompt, "COBOL")

	fresh, err := gen.GenerateResume(context.Background(), baseResume, vacancy, nil, requester)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, fresh.ID)
	assert.NotEqual(t, existing.ID, fresh.ID)
}

func TestGenerateCoverLetter(t *testing.T) {
	caller := &MockCaller{
		LetterFunc:   respond(`{"subjectLine": " Backend Engineer role ", "content": "I ran Go services on Kubernetes at Acme."}`),
		CritiqueFunc: respond(`{"naturalnessScore": 90, "aiRiskScore": 10, "issues": [], "targetedFixes": []}`),
	}
	h := humanizer.New(caller, nil, fallbackModel, humanizer.DefaultConfig())
	gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel, Humanizer: h})

	letter, err := gen.GenerateCoverLetter(context.Background(), baseResume, vacancy, types.CoverLetterSettings{Locale: "en-GB", Recipient: "Dana"}, requester)
	require.NoError(t, err)

	assert.Equal(t, "Backend Engineer role", letter.SubjectLine)
	assert.Equal(t, "I ran Go services on Kubernetes at Acme.", letter.Content)
	assert.Equal(t, 0, letter.PassesUsed)
	assert.Len(t, letter.Calls, 2)

	prompt := caller.RequestsFor(types.ScenarioCoverLetterGeneration)[0].Prompt
	assert.Contains(t, prompt, "Recipient: Dana")
	assert.Contains(t, prompt, "Locale: en-GB")
	assert.Contains(t, prompt, "Maximum words: 350")
}

func TestGenerateCoverLetter_FailureIsFatal(t *testing.T) {
	caller := &MockCaller{LetterFunc: fail("unavailable")}
	gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel})

	_, err := gen.GenerateCoverLetter(context.Background(), baseResume, vacancy, types.CoverLetterSettings{}, requester)

	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, StageCoverLetter, gerr.Stage)
}

func TestGenerateResume_TemplateTextInVacancy(t *testing.T) {
	caller := &MockCaller{AdaptFunc: respond(adaptedJSON), ScoreFunc: respond(`{"matchScoreBefore": 40, "matchScoreAfter": 80}`)}
	gen := NewGenerator(caller, nil, Options{FallbackModel: fallbackModel})
	helm := types.Vacancy{
		Title:       "Platform Engineer",
		Description: "Ship Go services with Helm. Charts pin image: {{.Values.image.tag}} and {{.StrategyDirective}}.",
	}

	res, err := gen.GenerateResume(context.Background(), baseResume, helm, nil, requester)
	require.NoError(t, err)
	assert.False(t, res.ScoringFallbackUsed)

	adapt := caller.RequestsFor(types.ScenarioResumeAdaptation)
	require.Len(t, adapt, 1)
	assert.Contains(t, adapt[0].Prompt, "image: {{.Values.image.tag}} and {{.StrategyDirective}}.")
}
