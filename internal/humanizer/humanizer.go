package humanizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/prompts"
	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/schemas"
	"github.com/jonathan/resume-studio/internal/scoring"
	"github.com/jonathan/resume-studio/internal/types"
)

const defaultMaxWords = 350

// Humanizer critiques a cover letter and rewrites it until it reads naturally
// or the rewrite budget runs out.
type Humanizer struct {
	caller   llm.Caller
	resolver routing.RouteResolver
	fallback *types.Model
	config   types.HumanizerConfig
}

// New creates a Humanizer. The fallback model is used when a scenario has no route.
func New(caller llm.Caller, resolver routing.RouteResolver, fallback *types.Model, config types.HumanizerConfig) *Humanizer {
	return &Humanizer{caller: caller, resolver: resolver, fallback: fallback, config: config}
}

// Config returns the loop configuration.
func (h *Humanizer) Config() types.HumanizerConfig {
	return h.config
}

type critiquePayload struct {
	NaturalnessScore float64  `json:"naturalnessScore"`
	AiRiskScore      float64  `json:"aiRiskScore"`
	SpecificityScore float64  `json:"specificityScore"`
	LocaleFitScore   float64  `json:"localeFitScore"`
	Issues           []string `json:"issues"`
	TargetedFixes    []string `json:"targetedFixes"`
}

type letterPayload struct {
	SubjectLine string `json:"subjectLine"`
	Content     string `json:"content"`
}

// Humanize runs the loop: critique, accept when the thresholds are met,
// otherwise rewrite and critique again while passes remain. Model failures end
// the loop with the best content so far; Humanize itself only fails when a
// prompt cannot be built.
func (h *Humanizer) Humanize(ctx context.Context, content, subjectLine string, settings types.CoverLetterSettings, req types.Requester) (*types.HumanizeResult, error) {
	state := types.HumanizerPassState{Content: content, SubjectLine: subjectLine}
	result := &types.HumanizeResult{Calls: []types.CallUsage{}}

	critiqueRoute := routing.ResolveOrFallback(ctx, h.resolver, req.Role, types.ScenarioCoverLetterCritique, h.fallback)
	var rewriteRoute *types.ResolvedRoute

	for {
		crit, err := h.critique(ctx, critiqueRoute, state, settings, req, result)
		if err != nil {
			var perr *promptError
			if errors.As(err, &perr) {
				return nil, err
			}
			logx.Warn().Err(err).Int("passes_used", state.PassCount).Msg("cover letter critique failed, keeping current draft")
			break
		}
		state.Critique = crit

		if h.config.DebugLogs {
			logx.Info().
				Int("pass", state.PassCount).
				Int("naturalness", crit.NaturalnessScore).
				Int("ai_risk", crit.AiRiskScore).
				Int("specificity", crit.SpecificityScore).
				Int("locale_fit", crit.LocaleFitScore).
				Int("issues", len(crit.Issues)).
				Msg("cover letter critique")
		}

		if h.meetsThresholds(crit) {
			result.Accepted = true
			break
		}
		if state.PassCount >= h.config.MaxRewritePasses {
			break
		}

		if rewriteRoute == nil {
			rewriteRoute = routing.ResolveOrFallback(ctx, h.resolver, req.Role, types.ScenarioCoverLetterRewrite, h.fallback)
		}
		letter, err := h.rewrite(ctx, rewriteRoute, state, settings, req, result)
		if err != nil {
			var perr *promptError
			if errors.As(err, &perr) {
				return nil, err
			}
			logx.Warn().Err(err).Int("passes_used", state.PassCount).Msg("cover letter rewrite failed, keeping current draft")
			break
		}
		state.Content = letter.Content
		if s := strings.TrimSpace(letter.SubjectLine); s != "" {
			state.SubjectLine = s
		}
		state.PassCount++
	}

	result.Content = state.Content
	result.SubjectLine = state.SubjectLine
	result.PassesUsed = state.PassCount
	result.Final = state.Critique
	return result, nil
}

func (h *Humanizer) meetsThresholds(c *types.Critique) bool {
	return c.NaturalnessScore >= h.config.MinNaturalnessScore && c.AiRiskScore <= h.config.MaxAiRiskScore
}

type promptError struct {
	Key   string
	Cause error
}

func (e *promptError) Error() string {
	return fmt.Sprintf("build %s prompt: %v", e.Key, e.Cause)
}

func (e *promptError) Unwrap() error {
	return e.Cause
}

func (h *Humanizer) critique(ctx context.Context, route *types.ResolvedRoute, state types.HumanizerPassState, settings types.CoverLetterSettings, req types.Requester, result *types.HumanizeResult) (*types.Critique, error) {
	detected, mismatch := localeMismatch(state.Content, settings.Locale)
	localeNote := ""
	if mismatch {
		note, err := prompts.Render("humanizer.json", "locale-mismatch", map[string]string{"Detected": detected})
		if err != nil {
			return nil, &promptError{Key: "locale-mismatch", Cause: err}
		}
		localeNote = note
	}

	prompt, err := prompts.Render("humanizer.json", "critique", map[string]string{
		"SubjectLine": state.SubjectLine,
		"Content":     state.Content,
		"Locale":      orDefault(settings.Locale, "en"),
		"Tone":        orDefault(settings.Tone, "professional"),
		"LocaleNote":  localeNote,
	})
	if err != nil {
		return nil, &promptError{Key: "critique", Cause: err}
	}

	var payload critiquePayload
	if _, err := h.call(ctx, route, prompt, types.ScenarioCoverLetterCritique, req, schemas.Critique, &payload, result); err != nil {
		return nil, err
	}

	crit := &types.Critique{
		NaturalnessScore: scoring.ClampScore(payload.NaturalnessScore),
		AiRiskScore:      scoring.ClampScore(payload.AiRiskScore),
		SpecificityScore: scoring.ClampScore(payload.SpecificityScore),
		LocaleFitScore:   scoring.ClampScore(payload.LocaleFitScore),
		Issues:           payload.Issues,
		TargetedFixes:    payload.TargetedFixes,
	}
	stockIssues, stockFixes := stockPhraseNotes(state.Content)
	crit.Issues = append(crit.Issues, stockIssues...)
	crit.TargetedFixes = append(crit.TargetedFixes, stockFixes...)
	if mismatch {
		crit.Issues = append(crit.Issues, fmt.Sprintf("Letter is written in %q but the locale is %q", detected, settings.Locale))
	}
	return crit, nil
}

func (h *Humanizer) rewrite(ctx context.Context, route *types.ResolvedRoute, state types.HumanizerPassState, settings types.CoverLetterSettings, req types.Requester, result *types.HumanizeResult) (*letterPayload, error) {
	directive, err := prompts.StrategyDirective(route.StrategyKey)
	if err != nil {
		return nil, &promptError{Key: "strategy-directive", Cause: err}
	}
	maxWords := settings.MaxWords
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	prompt, err := prompts.Render("humanizer.json", "rewrite", map[string]string{
		"SubjectLine":       state.SubjectLine,
		"Content":           state.Content,
		"Issues":            bulletList(state.Critique.Issues),
		"Fixes":             bulletList(state.Critique.TargetedFixes),
		"Locale":            orDefault(settings.Locale, "en"),
		"Tone":              orDefault(settings.Tone, "professional"),
		"MaxWords":          strconv.Itoa(maxWords),
		"StrategyDirective": directive,
	})
	if err != nil {
		return nil, &promptError{Key: "rewrite", Cause: err}
	}

	var letter letterPayload
	if _, err := h.call(ctx, route, prompt, types.ScenarioCoverLetterRewrite, req, schemas.CoverLetter, &letter, result); err != nil {
		return nil, err
	}
	return &letter, nil
}

func (h *Humanizer) call(ctx context.Context, route *types.ResolvedRoute, prompt string, scenario types.ScenarioKey, req types.Requester, schema string, v any, result *types.HumanizeResult) (*llm.Response, error) {
	resp, err := llm.CallJSON(ctx, h.caller, llm.Request{
		Prompt:         prompt,
		Model:          route.Model,
		MaxTokens:      route.MaxTokens,
		Temperature:    route.Temperature,
		ResponseFormat: route.ResponseFormat,
	}, llm.CallOptions{Scenario: scenario, Role: req.Role, UserID: req.UserID}, schema, v)
	if resp != nil {
		result.Calls = append(result.Calls, resp.CallUsage(scenario))
	}
	return resp, err
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- none"
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(strings.TrimSpace(item))
	}
	return sb.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
