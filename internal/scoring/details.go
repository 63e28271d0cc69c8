package scoring

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/resume-studio/internal/jsonfix"
	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/prompts"
	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/schemas"
	"github.com/jonathan/resume-studio/internal/types"
)

// DefaultAttemptBudget is the number of signal extraction calls made before
// falling back to lexical scoring.
const DefaultAttemptBudget = 1

// maxSignals bounds how many signals extraction asks for.
const maxSignals = 20

var parseFailurePattern = regexp.MustCompile(`(?i)failed to parse json|invalid json|unexpected end of json`)

// IsParseFailure reports whether err means the model's output could not be
// used as JSON: a decode or schema error, or a provider error whose message
// says so.
func IsParseFailure(err error) bool {
	if err == nil {
		return false
	}
	var verr *schemas.ValidationError
	if jsonfix.IsDecodeError(err) || errors.As(err, &verr) {
		return true
	}
	return parseFailurePattern.MatchString(err.Error())
}

// SignalStore caches extracted signals by vacancy hash. A miss is (nil, nil).
type SignalStore interface {
	GetSignals(ctx context.Context, vacancyHash string) ([]types.VacancySignal, error)
	PutSignals(ctx context.Context, vacancyHash string, signals []types.VacancySignal) error
}

// Options configures a Scorer.
type Options struct {
	// AttemptBudget bounds signal extraction calls. Zero means DefaultAttemptBudget.
	AttemptBudget int
	// FallbackModel is used when routing is unresolved.
	FallbackModel *types.Model
	// Signals caches extracted signals. Nil disables caching.
	Signals SignalStore
}

// Scorer runs detailed scoring: signal extraction, then evidence matching.
type Scorer struct {
	caller   llm.Caller
	resolver routing.RouteResolver
	opts     Options
}

// NewScorer creates a Scorer.
func NewScorer(caller llm.Caller, resolver routing.RouteResolver, opts Options) *Scorer {
	if opts.AttemptBudget <= 0 {
		opts.AttemptBudget = DefaultAttemptBudget
	}
	return &Scorer{caller: caller, resolver: resolver, opts: opts}
}

type signalsPayload struct {
	Signals []struct {
		Name   string  `json:"name"`
		Type   string  `json:"type"`
		Weight float64 `json:"weight"`
	} `json:"signals"`
}

type evidencePayload struct {
	Evidence []struct {
		Signal         string   `json:"signal"`
		StrengthBefore float64  `json:"strengthBefore"`
		StrengthAfter  float64  `json:"strengthAfter"`
		PresentBefore  bool     `json:"presentBefore"`
		PresentAfter   bool     `json:"presentAfter"`
		EvidenceBefore []string `json:"evidenceBefore"`
		EvidenceAfter  []string `json:"evidenceAfter"`
	} `json:"evidence"`
}

// ScoreDetails scores before and after resumes against a vacancy. It never
// fails because of the model: extraction failures fall back to lexical
// details tagged deterministic-v1, and evidence failures keep the extracted
// signals with lexical evidence. Usage.AttemptsUsed counts every LLM call made.
func (s *Scorer) ScoreDetails(ctx context.Context, before, after *types.ResumeContent, vacancy types.Vacancy, existing *types.ScoreDetails, req types.Requester) (*types.DetailedScoreResult, error) {
	beforeText, afterText := before.Text(), after.Text()
	hash := VacancyHash(vacancy)
	usage := types.ScoreUsage{Calls: []types.CallUsage{}}

	route := routing.ResolveOrFallback(ctx, s.resolver, req.Role, types.ScenarioResumeScoreDetails, s.opts.FallbackModel)
	opts := llm.CallOptions{Scenario: types.ScenarioResumeScoreDetails, Role: req.Role, UserID: req.UserID}

	signals := s.knownSignals(ctx, hash, existing)
	if signals == nil {
		var err error
		signals, err = s.extractSignals(ctx, route, opts, vacancy, &usage)
		if err != nil {
			logx.Warn().Err(err).
				Int("attempts_used", usage.AttemptsUsed).
				Bool("parse_failure", IsParseFailure(err)).
				Msg("signal extraction failed, using deterministic details")
			details := HeuristicDetails(beforeText, afterText, vacancy, nil)
			return &types.DetailedScoreResult{Details: details, Usage: usage}, nil
		}
		s.storeSignals(ctx, hash, signals)
	}

	evidence := make([]types.SignalEvidence, len(signals))
	var unresolved []int
	for i, sig := range signals {
		evidence[i] = LexicalEvidence(sig, beforeText, afterText)
		if !evidence[i].PresentAfter {
			unresolved = append(unresolved, i)
		}
	}

	evidenceFallback := false
	if len(unresolved) > 0 {
		if err := s.matchEvidence(ctx, route, opts, signals, unresolved, evidence, beforeText, afterText, &usage); err != nil {
			logx.Warn().Err(err).Int("unresolved", len(unresolved)).Msg("evidence matching failed, keeping lexical evidence")
			evidenceFallback = true
		}
	}

	details := Summarize(evidence)
	details.Version = types.ScoreVersionLLMSignals
	details.VacancyHash = hash
	details.Signals = signals
	details.EvidenceFallbackUsed = evidenceFallback
	return &types.DetailedScoreResult{Details: details, Usage: usage}, nil
}

// knownSignals returns signals that need no extraction call: from a previous
// LLM-scored result for the same vacancy, or from the cache.
func (s *Scorer) knownSignals(ctx context.Context, hash string, existing *types.ScoreDetails) []types.VacancySignal {
	if existing != nil && existing.VacancyHash == hash && existing.Version == types.ScoreVersionLLMSignals && len(existing.Signals) > 0 {
		return existing.Signals
	}
	if s.opts.Signals == nil {
		return nil
	}
	cached, err := s.opts.Signals.GetSignals(ctx, hash)
	if err != nil {
		logx.Warn().Err(err).Msg("signal cache read failed")
		return nil
	}
	if len(cached) == 0 {
		return nil
	}
	return cached
}

func (s *Scorer) storeSignals(ctx context.Context, hash string, signals []types.VacancySignal) {
	if s.opts.Signals == nil {
		return
	}
	if err := s.opts.Signals.PutSignals(ctx, hash, signals); err != nil {
		logx.Warn().Err(err).Msg("signal cache write failed")
	}
}

// extractSignals makes up to AttemptBudget extraction calls. A parse failure
// retries with twice the token budget; any other provider failure retries on
// the route's retry model when there is one.
func (s *Scorer) extractSignals(ctx context.Context, route *types.ResolvedRoute, opts llm.CallOptions, vacancy types.Vacancy, usage *types.ScoreUsage) ([]types.VacancySignal, error) {
	prompt, err := prompts.Render("scoring.json", "extract-signals", map[string]string{
		"Vacancy":    vacancyPlainText(vacancy),
		"MaxSignals": strconv.Itoa(maxSignals),
	})
	if err != nil {
		return nil, err
	}

	model := route.Model
	maxTokens := route.MaxTokens
	var lastErr error
	for usage.AttemptsUsed < s.opts.AttemptBudget {
		usage.AttemptsUsed++

		var payload signalsPayload
		resp, err := llm.CallJSON(ctx, s.caller, llm.Request{
			Prompt:         prompt,
			Model:          model,
			MaxTokens:      maxTokens,
			Temperature:    route.Temperature,
			ResponseFormat: route.ResponseFormat,
		}, opts, schemas.VacancySignals, &payload)
		if resp != nil {
			usage.Calls = append(usage.Calls, resp.CallUsage(opts.Scenario))
		}
		if err == nil {
			if signals := toSignals(payload); len(signals) > 0 {
				return signals, nil
			}
			err = &jsonfix.DecodeError{Raw: resp.Content, Cause: errors.New("no signals extracted")}
		}

		lastErr = err
		switch {
		case IsParseFailure(err):
			maxTokens *= 2
		case route.RetryModel != nil:
			model = route.RetryModel
		}
	}
	return nil, lastErr
}

func toSignals(p signalsPayload) []types.VacancySignal {
	seen := make(map[string]bool)
	var out []types.VacancySignal
	for _, raw := range p.Signals {
		name := strings.TrimSpace(raw.Name)
		key := normalizeSpace(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true

		sig := types.VacancySignal{Name: name, Type: types.SignalType(raw.Type), Weight: clampUnit(raw.Weight)}
		switch sig.Type {
		case types.SignalCoreRequirement, types.SignalMustHave, types.SignalNiceToHave, types.SignalResponsibility:
		default:
			sig.Type = types.SignalCoreRequirement
		}
		if sig.Weight == 0 {
			sig.Weight = 0.5
		}
		out = append(out, sig)
		if len(out) == maxSignals {
			break
		}
	}
	return out
}

// matchEvidence asks the model for evidence on the unresolved signals in one
// call and merges the answers into evidence.
func (s *Scorer) matchEvidence(ctx context.Context, route *types.ResolvedRoute, opts llm.CallOptions, signals []types.VacancySignal, unresolved []int, evidence []types.SignalEvidence, beforeText, afterText string, usage *types.ScoreUsage) error {
	pending := make([]types.VacancySignal, len(unresolved))
	for i, idx := range unresolved {
		pending[i] = signals[idx]
	}

	prompt, err := prompts.Render("scoring.json", "match-evidence", map[string]string{
		"Signals":      signalNames(pending),
		"BeforeResume": beforeText,
		"AfterResume":  afterText,
	})
	if err != nil {
		return err
	}

	usage.AttemptsUsed++
	var payload evidencePayload
	resp, err := llm.CallJSON(ctx, s.caller, llm.Request{
		Prompt:         prompt,
		Model:          route.Model,
		MaxTokens:      route.MaxTokens,
		Temperature:    route.Temperature,
		ResponseFormat: route.ResponseFormat,
	}, opts, schemas.SignalEvidence, &payload)
	if resp != nil {
		usage.Calls = append(usage.Calls, resp.CallUsage(opts.Scenario))
	}
	if err != nil {
		return err
	}

	for _, idx := range unresolved {
		for _, e := range payload.Evidence {
			if !sameSignal(e.Signal, signals[idx].Name) {
				continue
			}
			ev := &evidence[idx]
			ev.StrengthAfter = clampUnit(e.StrengthAfter)
			ev.PresentAfter = e.PresentAfter
			ev.EvidenceAfter = e.EvidenceAfter
			if !ev.PresentBefore {
				ev.StrengthBefore = clampUnit(e.StrengthBefore)
				ev.PresentBefore = e.PresentBefore
				ev.EvidenceBefore = e.EvidenceBefore
			}
			break
		}
	}
	return nil
}
