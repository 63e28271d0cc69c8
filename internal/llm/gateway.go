package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/types"
)

// Request is a single provider call.
type Request struct {
	Prompt         string
	Model          *types.Model
	MaxTokens      int
	Temperature    float64
	ResponseFormat types.ResponseFormat
}

// CallOptions attributes a call for usage accounting.
type CallOptions struct {
	Scenario types.ScenarioKey
	Role     types.Role
	UserID   uuid.UUID
}

// Usage is the token usage a provider reports for one call.
type Usage struct {
	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	CachedInputTokens int `json:"cached_input_tokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Response is the result of a successful call.
type Response struct {
	Content      string
	TokensUsed   int
	Cost         float64
	Provider     string
	ProviderType string
	Model        string
	Usage        *Usage
	Truncated    bool // the provider stopped at the output token limit
	DurationMs   int64
}

// CallUsage converts the response into the usage entry stored on results.
func (r *Response) CallUsage(scenario types.ScenarioKey) types.CallUsage {
	u := types.CallUsage{
		Scenario:     scenario,
		Provider:     r.Provider,
		ProviderType: r.ProviderType,
		Model:        r.Model,
		TokensUsed:   r.TokensUsed,
		Cost:         r.Cost,
		DurationMs:   r.DurationMs,
	}
	if r.Usage != nil {
		u.InputTokens = r.Usage.InputTokens
		u.OutputTokens = r.Usage.OutputTokens
		u.CachedInputTokens = r.Usage.CachedInputTokens
	}
	return u
}

// Completion is what a provider adapter is asked to produce.
type Completion struct {
	Prompt      string
	ModelKey    string
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// Result is a provider adapter's raw output.
type Result struct {
	Text      string
	Usage     Usage
	Truncated bool
}

// Provider is one LLM backend.
type Provider interface {
	// Name is the catalog provider id the adapter serves.
	Name() string
	// Type describes the client stack, reported as providerType on responses.
	Type() string
	Generate(ctx context.Context, c Completion) (*Result, error)
}

// Caller is the invocation surface the orchestrators depend on.
type Caller interface {
	Call(ctx context.Context, req Request, opts CallOptions) (*Response, error)
}

// UsageRecorder stores a ledger row per call.
type UsageRecorder interface {
	RecordLLMCall(ctx context.Context, rec types.LLMCallRecord) error
}

// Gateway dispatches calls to providers by the model's provider id.
type Gateway struct {
	providers map[string]Provider
	config    Config
	now       func() time.Time
}

// NewGateway creates a gateway over the given providers.
func NewGateway(config Config, providers ...Provider) *Gateway {
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}
	g := &Gateway{
		providers: make(map[string]Provider, len(providers)),
		config:    config,
		now:       time.Now,
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

// Providers returns the registered provider ids.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	return names
}

// Call issues exactly one provider call bounded by the configured timeout.
// Every failure is returned as a *ProviderError.
func (g *Gateway) Call(ctx context.Context, req Request, opts CallOptions) (*Response, error) {
	if req.Model == nil || req.Model.ModelKey == "" {
		return nil, &ProviderError{Code: CodeInvalidModel, Message: "request has no model"}
	}
	provider, ok := g.providers[req.Model.Provider]
	if !ok {
		return nil, &ProviderError{Provider: req.Model.Provider, Code: CodeNoProvider, Message: "no provider registered for " + req.Model.Provider}
	}

	maxTokens := req.MaxTokens
	if req.Model.MaxOutputTokens > 0 && (maxTokens <= 0 || maxTokens > req.Model.MaxOutputTokens) {
		maxTokens = req.Model.MaxOutputTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
	defer cancel()

	start := g.now()
	result, err := provider.Generate(callCtx, Completion{
		Prompt:      req.Prompt,
		ModelKey:    req.Model.ModelKey,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		JSON:        req.ResponseFormat == types.ResponseFormatJSON,
	})
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err == nil && (result == nil || strings.TrimSpace(result.Text) == "") {
		err = &ProviderError{Code: CodeEmptyResponse, Message: "provider returned no content"}
	}
	duration := g.now().Sub(start).Milliseconds()

	rec := types.LLMCallRecord{
		ID:           uuid.New(),
		Scenario:     opts.Scenario,
		Role:         opts.Role,
		UserID:       opts.UserID,
		Provider:     provider.Name(),
		ProviderType: provider.Type(),
		Model:        req.Model.ModelKey,
		DurationMs:   duration,
		CreatedAt:    start,
	}

	if err != nil {
		perr := classify(provider.Name(), err)
		rec.ErrorCode = perr.Code
		rec.ErrorMessage = perr.Error()
		g.record(ctx, rec)
		logx.Warn().
			Str("scenario", string(opts.Scenario)).
			Str("role", string(opts.Role)).
			Str("provider", provider.Name()).
			Str("model", req.Model.ModelKey).
			Str("code", perr.Code).
			Int64("duration_ms", duration).
			Err(perr).
			Msg("llm call failed")
		return nil, perr
	}

	cost := ComputeCost(req.Model, result.Usage)
	usage := result.Usage
	resp := &Response{
		Content:      result.Text,
		TokensUsed:   usage.Total(),
		Cost:         cost,
		Provider:     provider.Name(),
		ProviderType: provider.Type(),
		Model:        req.Model.ModelKey,
		Usage:        &usage,
		Truncated:    result.Truncated,
		DurationMs:   duration,
	}

	rec.Success = true
	rec.InputTokens = usage.InputTokens
	rec.OutputTokens = usage.OutputTokens
	rec.CachedInputTokens = usage.CachedInputTokens
	rec.Cost = cost
	g.record(ctx, rec)

	logx.Debug().
		Str("scenario", string(opts.Scenario)).
		Str("role", string(opts.Role)).
		Str("provider", resp.Provider).
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Float64("cost", cost).
		Int64("duration_ms", duration).
		Bool("truncated", result.Truncated).
		Msg("llm call")
	return resp, nil
}

func (g *Gateway) record(ctx context.Context, rec types.LLMCallRecord) {
	if g.config.Recorder == nil {
		return
	}
	// The ledger write must not inherit an expired call deadline.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := g.config.Recorder.RecordLLMCall(recCtx, rec); err != nil {
		logx.Warn().Err(err).Str("scenario", string(rec.Scenario)).Msg("failed to record llm call")
	}
}

// String describes the gateway for logs.
func (g *Gateway) String() string {
	return fmt.Sprintf("llm.Gateway(providers=%v, timeout=%s)", g.Providers(), g.config.CallTimeout)
}
