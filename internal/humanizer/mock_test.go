package humanizer

import (
	"context"
	"strings"
	"sync"

	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/types"
)

// MockCaller is a mock implementation of llm.Caller for testing
type MockCaller struct {
	CallFunc func(ctx context.Context, req llm.Request, opts llm.CallOptions) (*llm.Response, error)

	mu      sync.Mutex
	prompts []string
	opts    []llm.CallOptions
}

func (m *MockCaller) Call(ctx context.Context, req llm.Request, opts llm.CallOptions) (*llm.Response, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	return m.CallFunc(ctx, req, opts)
}

func (m *MockCaller) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockCaller) Scenarios() []types.ScenarioKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.ScenarioKey, len(m.opts))
	for i, o := range m.opts {
		out[i] = o.Scenario
	}
	return out
}

// scripted answers critiques from the given list in order and rewrites with
// the given content.
func scripted(critiques []string, rewrite string) func(context.Context, llm.Request, llm.CallOptions) (*llm.Response, error) {
	var mu sync.Mutex
	next := 0
	return func(_ context.Context, req llm.Request, _ llm.CallOptions) (*llm.Response, error) {
		if strings.HasPrefix(req.Prompt, "Rewrite") {
			return &llm.Response{Content: rewrite, Provider: "gemini", Model: "gemini-2.5-flash"}, nil
		}
		mu.Lock()
		defer mu.Unlock()
		c := critiques[next]
		if next < len(critiques)-1 {
			next++
		}
		return &llm.Response{Content: c, Provider: "gemini", Model: "gemini-2.5-flash"}, nil
	}
}

var fallbackModel = &types.Model{Provider: "gemini", ModelKey: "gemini-2.5-flash", Status: types.ModelStatusActive}
