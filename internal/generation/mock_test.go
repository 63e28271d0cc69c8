package generation

import (
	"context"
	"strings"
	"sync"

	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/types"
)

// MockCaller is a mock implementation of llm.Caller for testing
type MockCaller struct {
	AdaptFunc    func(req llm.Request) (*llm.Response, error)
	ScoreFunc    func(req llm.Request) (*llm.Response, error)
	LetterFunc   func(req llm.Request) (*llm.Response, error)
	CritiqueFunc func(req llm.Request) (*llm.Response, error)

	mu       sync.Mutex
	requests []llm.Request
	opts     []llm.CallOptions
}

func (m *MockCaller) Call(_ context.Context, req llm.Request, opts llm.CallOptions) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	var fn func(llm.Request) (*llm.Response, error)
	switch {
	case strings.HasPrefix(req.Prompt, "You are an expert resume writer"):
		fn = m.AdaptFunc
	case strings.HasPrefix(req.Prompt, "You are a strict recruiter"):
		fn = m.ScoreFunc
	case strings.HasPrefix(req.Prompt, "Write a cover letter"):
		fn = m.LetterFunc
	case strings.HasPrefix(req.Prompt, "Review this cover letter"):
		fn = m.CritiqueFunc
	}
	if fn == nil {
		return nil, &llm.ProviderError{Provider: "mock", Message: "unexpected prompt"}
	}
	return fn(req)
}

// RequestsFor returns the requests made for a scenario, in order.
func (m *MockCaller) RequestsFor(scenario types.ScenarioKey) []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []llm.Request
	for i, o := range m.opts {
		if o.Scenario == scenario {
			out = append(out, m.requests[i])
		}
	}
	return out
}

func respond(content string) func(llm.Request) (*llm.Response, error) {
	return func(req llm.Request) (*llm.Response, error) {
		return jsonResponse(req, content), nil
	}
}

func jsonResponse(req llm.Request, content string) *llm.Response {
	model := ""
	if req.Model != nil {
		model = req.Model.ModelKey
	}
	return &llm.Response{
		Content:    content,
		Provider:   "gemini",
		Model:      model,
		TokensUsed: 300,
		Cost:       0.001,
		Usage:      &llm.Usage{InputTokens: 200, OutputTokens: 100},
	}
}

func fail(message string) func(llm.Request) (*llm.Response, error) {
	return func(llm.Request) (*llm.Response, error) {
		return nil, &llm.ProviderError{Provider: "gemini", Code: "503", Message: message}
	}
}
