package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/types"
)

// MockGenerator is a mock ResumeGenerator.
type MockGenerator struct {
	GenerateResumeFunc      func(ctx context.Context, base *types.ResumeContent, vacancy types.Vacancy, existing *types.GenerationResult, req types.Requester) (*types.GenerationResult, error)
	GenerateCoverLetterFunc func(ctx context.Context, base *types.ResumeContent, vacancy types.Vacancy, settings types.CoverLetterSettings, req types.Requester) (*types.CoverLetter, error)
}

func (m *MockGenerator) GenerateResume(ctx context.Context, base *types.ResumeContent, vacancy types.Vacancy, existing *types.GenerationResult, req types.Requester) (*types.GenerationResult, error) {
	return m.GenerateResumeFunc(ctx, base, vacancy, existing, req)
}

func (m *MockGenerator) GenerateCoverLetter(ctx context.Context, base *types.ResumeContent, vacancy types.Vacancy, settings types.CoverLetterSettings, req types.Requester) (*types.CoverLetter, error) {
	return m.GenerateCoverLetterFunc(ctx, base, vacancy, settings, req)
}

// MockScorer is a mock DetailScorer.
type MockScorer struct {
	ScoreDetailsFunc func(ctx context.Context, before, after *types.ResumeContent, vacancy types.Vacancy, existing *types.ScoreDetails, req types.Requester) (*types.DetailedScoreResult, error)
}

func (m *MockScorer) ScoreDetails(ctx context.Context, before, after *types.ResumeContent, vacancy types.Vacancy, existing *types.ScoreDetails, req types.Requester) (*types.DetailedScoreResult, error) {
	return m.ScoreDetailsFunc(ctx, before, after, vacancy, existing, req)
}

// MockHumanizer is a mock LetterHumanizer.
type MockHumanizer struct {
	HumanizeFunc func(ctx context.Context, content, subjectLine string, settings types.CoverLetterSettings, req types.Requester) (*types.HumanizeResult, error)
}

func (m *MockHumanizer) Humanize(ctx context.Context, content, subjectLine string, settings types.CoverLetterSettings, req types.Requester) (*types.HumanizeResult, error) {
	return m.HumanizeFunc(ctx, content, subjectLine, settings, req)
}

// MemoryResults is an in-memory ResultStore.
type MemoryResults struct {
	mu          sync.Mutex
	generations map[uuid.UUID]types.GenerationResult
	details     map[uuid.UUID]types.ScoreDetails
	owners      map[uuid.UUID]types.Requester
}

func NewMemoryResults() *MemoryResults {
	return &MemoryResults{
		generations: map[uuid.UUID]types.GenerationResult{},
		details:     map[uuid.UUID]types.ScoreDetails{},
		owners:      map[uuid.UUID]types.Requester{},
	}
}

func (m *MemoryResults) SaveGeneration(_ context.Context, req types.Requester, g *types.GenerationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.generations[g.ID]; ok && prev.UserID != req.UserID {
		return db.ErrGenerationOwner
	}
	stored := *g
	stored.UserID = req.UserID
	m.generations[g.ID] = stored
	m.owners[g.ID] = req
	return nil
}

func (m *MemoryResults) GetGeneration(_ context.Context, id uuid.UUID) (*types.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.generations[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *MemoryResults) SaveScoreDetails(_ context.Context, generationID uuid.UUID, res *types.DetailedScoreResult) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[generationID] = res.Details
	return uuid.New(), nil
}

func (m *MemoryResults) LatestScoreDetails(_ context.Context, generationID uuid.UUID) (*types.ScoreDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[generationID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// MockUsage is a mock UsageReporter.
type MockUsage struct {
	UsageByScenarioFunc func(ctx context.Context, since time.Time) ([]db.ScenarioUsage, error)
}

func (m *MockUsage) UsageByScenario(ctx context.Context, since time.Time) ([]db.ScenarioUsage, error) {
	return m.UsageByScenarioFunc(ctx, since)
}

// MockHealth is a mock HealthChecker.
type MockHealth struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockHealth) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
