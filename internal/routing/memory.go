package routing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/types"
)

// MemoryCatalog is an in-process Store. Every read returns a copy, and every
// write replaces a whole row under the lock, so readers never see a partial write.
type MemoryCatalog struct {
	mu        sync.RWMutex
	models    map[uuid.UUID]types.Model
	defaults  map[types.ScenarioKey]types.RoutingAssignment
	overrides map[overrideKey]types.RoutingAssignment
	now       func() time.Time
}

type overrideKey struct {
	scenario types.ScenarioKey
	role     types.Role
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		models:    make(map[uuid.UUID]types.Model),
		defaults:  make(map[types.ScenarioKey]types.RoutingAssignment),
		overrides: make(map[overrideKey]types.RoutingAssignment),
		now:       time.Now,
	}
}

// FindScenario returns the catalog scenario for key, or nil if unknown.
func (c *MemoryCatalog) FindScenario(_ context.Context, key types.ScenarioKey) (*types.Scenario, error) {
	p, ok := PolicyFor(key)
	if !ok {
		return nil, nil
	}
	s := p.Scenario
	return &s, nil
}

// GetModel returns a model by id, or nil if it does not exist.
func (c *MemoryCatalog) GetModel(_ context.Context, id uuid.UUID) (*types.Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// IsModelActive reports whether a model exists and is active.
func (c *MemoryCatalog) IsModelActive(ctx context.Context, id uuid.UUID) (bool, error) {
	m, err := c.GetModel(ctx, id)
	if err != nil {
		return false, err
	}
	return m.IsActive(), nil
}

// ListModels returns all models ordered by display name.
func (c *MemoryCatalog) ListModels(_ context.Context) ([]types.Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Model, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// CreateModel stores a new model, assigning an id when m.ID is zero.
func (c *MemoryCatalog) CreateModel(_ context.Context, m types.Model) (*types.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := c.now()
	m.CreatedAt, m.UpdatedAt = now, now
	c.models[m.ID] = m
	return &m, nil
}

// UpdateModel replaces an existing model. It returns nil if the model does not exist.
func (c *MemoryCatalog) UpdateModel(_ context.Context, m types.Model) (*types.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.models[m.ID]
	if !ok {
		return nil, nil
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = c.now()
	c.models[m.ID] = m
	return &m, nil
}

// SetModelStatus toggles a model between active and inactive.
func (c *MemoryCatalog) SetModelStatus(_ context.Context, id uuid.UUID, status types.ModelStatus) (*types.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.models[id]
	if !ok {
		return nil, nil
	}
	m.Status = status
	m.UpdatedAt = c.now()
	c.models[id] = m
	return &m, nil
}

// GetScenarioDefault returns the scenario default assignment, or nil.
func (c *MemoryCatalog) GetScenarioDefault(_ context.Context, scenario types.ScenarioKey) (*types.RoutingAssignment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.defaults[scenario]
	if !ok {
		return nil, nil
	}
	return copyAssignment(a), nil
}

// GetRoleOverride returns the role override assignment, or nil.
func (c *MemoryCatalog) GetRoleOverride(_ context.Context, scenario types.ScenarioKey, role types.Role) (*types.RoutingAssignment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.overrides[overrideKey{scenario, role}]
	if !ok {
		return nil, nil
	}
	return copyAssignment(a), nil
}

// UpsertScenarioDefault stores a as the default for scenario.
func (c *MemoryCatalog) UpsertScenarioDefault(_ context.Context, scenario types.ScenarioKey, a types.RoutingAssignment) (*types.RoutingAssignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a.Scenario = scenario
	a.Role = nil
	a.UpdatedAt = c.now()
	c.defaults[scenario] = *copyAssignment(a)
	return copyAssignment(a), nil
}

// UpsertRoleOverride stores a as the override for (scenario, role).
func (c *MemoryCatalog) UpsertRoleOverride(_ context.Context, scenario types.ScenarioKey, role types.Role, a types.RoutingAssignment) (*types.RoutingAssignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a.Scenario = scenario
	r := role
	a.Role = &r
	a.UpdatedAt = c.now()
	c.overrides[overrideKey{scenario, role}] = *copyAssignment(a)
	return copyAssignment(a), nil
}

// DeleteRoleOverride removes an override. Deleting a missing override is not an error.
func (c *MemoryCatalog) DeleteRoleOverride(_ context.Context, scenario types.ScenarioKey, role types.Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.overrides, overrideKey{scenario, role})
	return nil
}

func copyAssignment(a types.RoutingAssignment) *types.RoutingAssignment {
	if a.Role != nil {
		r := *a.Role
		a.Role = &r
	}
	if a.RetryModelID != nil {
		id := *a.RetryModelID
		a.RetryModelID = &id
	}
	if a.StrategyKey != nil {
		s := *a.StrategyKey
		a.StrategyKey = &s
	}
	return &a
}
