package scoring

import (
	"context"
	"sync"

	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/types"
)

// MockCaller is a mock implementation of llm.Caller for testing
type MockCaller struct {
	CallFunc func(ctx context.Context, req llm.Request, opts llm.CallOptions) (*llm.Response, error)

	mu       sync.Mutex
	requests []llm.Request
}

func (m *MockCaller) Call(ctx context.Context, req llm.Request, opts llm.CallOptions) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.CallFunc != nil {
		return m.CallFunc(ctx, req, opts)
	}
	return &llm.Response{Content: "{}"}, nil
}

func (m *MockCaller) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// textResponse builds a response the way the gateway would.
func textResponse(content string) *llm.Response {
	return &llm.Response{
		Content:    content,
		Provider:   "gemini",
		Model:      "gemini-2.5-flash",
		TokensUsed: 100,
		Usage:      &llm.Usage{InputTokens: 80, OutputTokens: 20},
	}
}

// MockSignalStore is an in-memory SignalStore
type MockSignalStore struct {
	mu   sync.Mutex
	data map[string][]types.VacancySignal
	puts int
}

func (m *MockSignalStore) GetSignals(_ context.Context, hash string) ([]types.VacancySignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[hash], nil
}

func (m *MockSignalStore) PutSignals(_ context.Context, hash string, signals []types.VacancySignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]types.VacancySignal)
	}
	m.data[hash] = signals
	m.puts++
	return nil
}

var fallbackModel = &types.Model{Provider: "gemini", ModelKey: "gemini-2.5-flash", Status: types.ModelStatusActive, MaxOutputTokens: 8192}
