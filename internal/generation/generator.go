// Package generation orchestrates resume tailoring and cover letter writing:
// routing, the shared context, the model calls with their retry policy, and
// the scoring fallback.
package generation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/humanizer"
	"github.com/jonathan/resume-studio/internal/jsonfix"
	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/prompts"
	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/schemas"
	"github.com/jonathan/resume-studio/internal/scoring"
	"github.com/jonathan/resume-studio/internal/sharedctx"
	"github.com/jonathan/resume-studio/internal/types"
)

const defaultCoverLetterWords = 350

// Options configures a Generator.
type Options struct {
	// FallbackModel is used for any scenario routing cannot resolve.
	FallbackModel *types.Model
	// Humanizer post-processes cover letters. Nil skips the loop.
	Humanizer *humanizer.Humanizer
}

// Generator runs resume and cover letter generations.
type Generator struct {
	caller    llm.Caller
	resolver  routing.RouteResolver
	fallback  *types.Model
	humanizer *humanizer.Humanizer
	now       func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(caller llm.Caller, resolver routing.RouteResolver, opts Options) *Generator {
	return &Generator{
		caller:    caller,
		resolver:  resolver,
		fallback:  opts.FallbackModel,
		humanizer: opts.Humanizer,
		now:       time.Now,
	}
}

type matchScorePayload struct {
	MatchScoreBefore float64  `json:"matchScoreBefore"`
	MatchScoreAfter  float64  `json:"matchScoreAfter"`
	Strengths        []string `json:"strengths"`
	Gaps             []string `json:"gaps"`
}

type coverLetterPayload struct {
	SubjectLine string `json:"subjectLine"`
	Content     string `json:"content"`
}

// GenerateResume tailors base to vacancy and scores the result. Adaptation
// failures are fatal and returned as *Error; scoring failures fall back to the
// keyword score with ScoringFallbackUsed set. When existing is given its ID is
// kept so a regeneration replaces it.
func (g *Generator) GenerateResume(ctx context.Context, base *types.ResumeContent, vacancy types.Vacancy, existing *types.GenerationResult, req types.Requester) (*types.GenerationResult, error) {
	result := &types.GenerationResult{
		ID:        uuid.New(),
		Calls:     []types.CallUsage{},
		CreatedAt: g.now().UTC(),
	}
	if existing != nil && existing.ID != uuid.Nil {
		result.ID = existing.ID
	}

	route := routing.ResolveOrFallback(ctx, g.resolver, req.Role, types.ScenarioResumeAdaptation, g.fallback)
	shared := sharedctx.Build(base, vacancy)

	directive, err := prompts.StrategyDirective(route.StrategyKey)
	if err != nil {
		return nil, &Error{Stage: StagePrompt, Cause: err}
	}
	prompt, err := prompts.Render("generation.json", "adapt-resume", map[string]string{
		"SharedContext":     shared.Prompt,
		"StrategyDirective": directive,
	})
	if err != nil {
		return nil, &Error{Stage: StagePrompt, Cause: err}
	}

	var adapted types.ResumeContent
	if err := g.callWithRetry(ctx, route, prompt, req, schemas.ResumeContent, &adapted, &result.Calls); err != nil {
		return nil, &Error{Stage: StageAdaptation, Cause: err}
	}
	result.Content = adapted
	result.StrategyKey = route.StrategyKey

	g.score(ctx, base, &adapted, vacancy, shared, req, result)

	logx.Info().
		Str("generation_id", result.ID.String()).
		Str("role", string(req.Role)).
		Str("route_source", string(route.Source)).
		Bool("scoring_fallback_used", result.ScoringFallbackUsed).
		Int("match_score_before", result.MatchScoreBefore).
		Int("match_score_after", result.MatchScoreAfter).
		Int("llm_calls", len(result.Calls)).
		Msg("resume generation complete")
	return result, nil
}

// score fills the match scores from one scoring call, or from the keyword
// fallback when that call or its decoding fails for any reason.
func (g *Generator) score(ctx context.Context, base, adapted *types.ResumeContent, vacancy types.Vacancy, shared types.SharedContext, req types.Requester, result *types.GenerationResult) {
	route := routing.ResolveOrFallback(ctx, g.resolver, req.Role, types.ScenarioResumeAdaptationScoring, g.fallback)

	err := func() error {
		prompt, err := prompts.Render("generation.json", "score-match", map[string]string{
			"SharedContext": shared.Prompt,
			"AdaptedResume": adapted.Text(),
		})
		if err != nil {
			return err
		}

		var payload matchScorePayload
		resp, err := llm.CallJSON(ctx, g.caller, requestFor(route, route.Model, route.MaxTokens, prompt), callOptions(route, req), schemas.MatchScore, &payload)
		if resp != nil {
			result.Calls = append(result.Calls, resp.CallUsage(route.Scenario))
		}
		if err != nil {
			return err
		}

		result.Scoring = &types.MatchScoring{
			MatchScoreBefore: scoring.ClampScore(payload.MatchScoreBefore),
			MatchScoreAfter:  scoring.ClampScore(payload.MatchScoreAfter),
			Strengths:        payload.Strengths,
			Gaps:             payload.Gaps,
		}
		return nil
	}()

	if err == nil {
		result.ScoringFallbackUsed = false
		result.MatchScoreBefore = result.Scoring.MatchScoreBefore
		result.MatchScoreAfter = result.Scoring.MatchScoreAfter
		result.ScoreBreakdown = types.ScoreBreakdown{
			Version:   types.ScoreVersionLLM,
			Strengths: result.Scoring.Strengths,
			Gaps:      result.Scoring.Gaps,
		}
		return
	}

	kw := scoring.KeywordMatchScore(base.Text(), adapted.Text(), vacancyKeywordText(vacancy))
	result.Scoring = nil
	result.ScoringFallbackUsed = true
	result.MatchScoreBefore = kw.Before
	result.MatchScoreAfter = kw.After
	result.ScoreBreakdown = kw.Breakdown

	logx.Warn().Err(err).
		Str("role", string(req.Role)).
		Bool("scoring_fallback_used", true).
		Str("score_version", kw.Breakdown.Version).
		Msg("match scoring failed, using keyword fallback")
}

// GenerateCoverLetter writes a cover letter for vacancy from base and runs it
// through the humanizer loop when one is configured.
func (g *Generator) GenerateCoverLetter(ctx context.Context, base *types.ResumeContent, vacancy types.Vacancy, settings types.CoverLetterSettings, req types.Requester) (*types.CoverLetter, error) {
	route := routing.ResolveOrFallback(ctx, g.resolver, req.Role, types.ScenarioCoverLetterGeneration, g.fallback)
	shared := sharedctx.Build(base, vacancy)

	directive, err := prompts.StrategyDirective(route.StrategyKey)
	if err != nil {
		return nil, &Error{Stage: StagePrompt, Cause: err}
	}
	maxWords := settings.MaxWords
	if maxWords <= 0 {
		maxWords = defaultCoverLetterWords
	}
	prompt, err := prompts.Render("generation.json", "cover-letter", map[string]string{
		"SharedContext":     shared.Prompt,
		"StrategyDirective": directive,
		"Locale":            valueOr(settings.Locale, "en"),
		"Tone":              valueOr(settings.Tone, "professional"),
		"MaxWords":          strconv.Itoa(maxWords),
		"Recipient":         valueOr(settings.Recipient, "Hiring Manager"),
	})
	if err != nil {
		return nil, &Error{Stage: StagePrompt, Cause: err}
	}

	letter := &types.CoverLetter{Calls: []types.CallUsage{}}
	var payload coverLetterPayload
	if err := g.callWithRetry(ctx, route, prompt, req, schemas.CoverLetter, &payload, &letter.Calls); err != nil {
		return nil, &Error{Stage: StageCoverLetter, Cause: err}
	}
	letter.Content = strings.TrimSpace(payload.Content)
	letter.SubjectLine = strings.TrimSpace(payload.SubjectLine)

	if g.humanizer == nil {
		return letter, nil
	}
	humanized, err := g.humanizer.Humanize(ctx, letter.Content, letter.SubjectLine, settings, req)
	if err != nil {
		return nil, &Error{Stage: StageCoverLetter, Cause: err}
	}
	letter.Content = humanized.Content
	letter.SubjectLine = humanized.SubjectLine
	letter.PassesUsed = humanized.PassesUsed
	letter.Calls = append(letter.Calls, humanized.Calls...)
	return letter, nil
}

// callWithRetry makes a JSON call with at most one retry of each kind: a
// provider failure retries on the route's retry model, and truncated output
// retries once with twice the token budget and a note asking for compact JSON.
func (g *Generator) callWithRetry(ctx context.Context, route *types.ResolvedRoute, prompt string, req types.Requester, schema string, v any, calls *[]types.CallUsage) error {
	model := route.Model
	maxTokens := route.MaxTokens
	retriedModel, retriedTokens := false, false

	for {
		resp, err := llm.CallJSON(ctx, g.caller, requestFor(route, model, maxTokens, prompt), callOptions(route, req), schema, v)
		if resp != nil {
			*calls = append(*calls, resp.CallUsage(route.Scenario))
		}
		if err == nil {
			return nil
		}

		switch {
		case isTruncatedOutput(resp, err) && !retriedTokens:
			retriedTokens = true
			note, nerr := prompts.Get("generation.json", "truncation-note")
			if nerr != nil {
				return nerr
			}
			prompt = prompt + "\n\n" + note
			maxTokens = doubledTokens(maxTokens, model)
			logx.Warn().Str("scenario", string(route.Scenario)).Int("max_tokens", maxTokens).Msg("output truncated, retrying with a larger budget")
		case isProviderFailure(err) && !retriedModel && route.RetryModel != nil:
			retriedModel = true
			model = route.RetryModel
			logx.Warn().Err(err).Str("scenario", string(route.Scenario)).Str("retry_model", model.ModelKey).Msg("provider failed, retrying on retry model")
		default:
			return err
		}
	}
}

// isTruncatedOutput reports whether err is an output failure on a response
// that was cut off: JSON left structurally open, or a provider-reported length
// stop whose repaired remains failed validation.
func isTruncatedOutput(resp *llm.Response, err error) bool {
	var derr *jsonfix.DecodeError
	if errors.As(err, &derr) && derr.Truncated {
		return true
	}
	return resp != nil && resp.Truncated && !isProviderFailure(err)
}

// isProviderFailure reports whether err came from the call itself rather than
// from decoding or validating its output.
func isProviderFailure(err error) bool {
	var verr *schemas.ValidationError
	return !jsonfix.IsDecodeError(err) && !errors.As(err, &verr)
}

func doubledTokens(maxTokens int, model *types.Model) int {
	doubled := maxTokens * 2
	if model != nil && model.MaxOutputTokens > 0 && doubled > model.MaxOutputTokens {
		return model.MaxOutputTokens
	}
	return doubled
}

func requestFor(route *types.ResolvedRoute, model *types.Model, maxTokens int, prompt string) llm.Request {
	return llm.Request{
		Prompt:         prompt,
		Model:          model,
		MaxTokens:      maxTokens,
		Temperature:    route.Temperature,
		ResponseFormat: route.ResponseFormat,
	}
}

func callOptions(route *types.ResolvedRoute, req types.Requester) llm.CallOptions {
	return llm.CallOptions{Scenario: route.Scenario, Role: req.Role, UserID: req.UserID}
}

func vacancyKeywordText(vacancy types.Vacancy) string {
	return vacancy.Title + "\n" + sharedctx.VacancyText(vacancy.Description)
}

func valueOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
