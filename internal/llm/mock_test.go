package llm

import (
	"context"
	"sync"

	"github.com/jonathan/resume-studio/internal/types"
)

// MockProvider is a mock implementation of Provider for testing
type MockProvider struct {
	NameValue    string
	GenerateFunc func(ctx context.Context, c Completion) (*Result, error)

	mu    sync.Mutex
	calls []Completion
}

func (m *MockProvider) Name() string { return m.NameValue }

func (m *MockProvider) Type() string { return "mock" }

func (m *MockProvider) Generate(ctx context.Context, c Completion) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, c)
	}
	return &Result{Text: "{}"}, nil
}

func (m *MockProvider) Calls() []Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Completion(nil), m.calls...)
}

// MockRecorder collects ledger rows
type MockRecorder struct {
	mu      sync.Mutex
	Records []types.LLMCallRecord
	Err     error
}

func (m *MockRecorder) RecordLLMCall(_ context.Context, rec types.LLMCallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
	return m.Err
}
