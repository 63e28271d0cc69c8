package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/types"
)

// Store is the full model catalog store: the read side used by the Resolver
// plus the admin-facing writes.
type Store interface {
	Catalog
	FindScenario(ctx context.Context, key types.ScenarioKey) (*types.Scenario, error)
	IsModelActive(ctx context.Context, id uuid.UUID) (bool, error)
	ListModels(ctx context.Context) ([]types.Model, error)
	CreateModel(ctx context.Context, m types.Model) (*types.Model, error)
	UpdateModel(ctx context.Context, m types.Model) (*types.Model, error)
	SetModelStatus(ctx context.Context, id uuid.UUID, status types.ModelStatus) (*types.Model, error)
	UpsertScenarioDefault(ctx context.Context, scenario types.ScenarioKey, a types.RoutingAssignment) (*types.RoutingAssignment, error)
	UpsertRoleOverride(ctx context.Context, scenario types.ScenarioKey, role types.Role, a types.RoutingAssignment) (*types.RoutingAssignment, error)
}

// Admin validates and normalizes catalog writes before handing them to a Store.
type Admin struct {
	store    Store
	validate *validator.Validate
}

// NewAdmin creates an Admin over store.
func NewAdmin(store Store) *Admin {
	return &Admin{store: store, validate: validator.New()}
}

// ListModels returns every model in the catalog, active or not.
func (a *Admin) ListModels(ctx context.Context) ([]types.Model, error) {
	return a.store.ListModels(ctx)
}

// CreateModel validates and stores a new model. New models default to active.
func (a *Admin) CreateModel(ctx context.Context, m types.Model) (*types.Model, error) {
	if m.Status == "" {
		m.Status = types.ModelStatusActive
	}
	if err := a.validateModel(m); err != nil {
		return nil, err
	}
	created, err := a.store.CreateModel(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	logx.Info().Str("model_id", created.ID.String()).Str("provider", created.Provider).Str("model", created.ModelKey).Msg("model created")
	return created, nil
}

// UpdateModel validates and replaces an existing model.
func (a *Admin) UpdateModel(ctx context.Context, m types.Model) (*types.Model, error) {
	if err := a.validateModel(m); err != nil {
		return nil, err
	}
	updated, err := a.store.UpdateModel(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to update model: %w", err)
	}
	if updated == nil {
		return nil, ErrModelNotFound
	}
	return updated, nil
}

// SetModelStatus activates or deactivates a model. Models are never deleted so
// historical routing references stay valid.
func (a *Admin) SetModelStatus(ctx context.Context, id uuid.UUID, status types.ModelStatus) (*types.Model, error) {
	if status != types.ModelStatusActive && status != types.ModelStatusInactive {
		return nil, &ValidationError{Field: "status", Message: "status must be active or inactive"}
	}
	m, err := a.store.SetModelStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to set model status: %w", err)
	}
	if m == nil {
		return nil, ErrModelNotFound
	}
	logx.Info().Str("model_id", id.String()).Str("status", string(status)).Msg("model status changed")
	return m, nil
}

// SetScenarioDefault normalizes and stores the default assignment for scenario.
func (a *Admin) SetScenarioDefault(ctx context.Context, scenario types.ScenarioKey, in types.RoutingAssignment) (*types.RoutingAssignment, error) {
	in.Scenario = scenario
	in.Role = nil
	norm, err := a.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	return a.store.UpsertScenarioDefault(ctx, scenario, norm)
}

// SetRoleOverride normalizes and stores the override for (scenario, role).
func (a *Admin) SetRoleOverride(ctx context.Context, scenario types.ScenarioKey, role types.Role, in types.RoutingAssignment) (*types.RoutingAssignment, error) {
	in.Scenario = scenario
	r := role
	in.Role = &r
	norm, err := a.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	return a.store.UpsertRoleOverride(ctx, scenario, role, norm)
}

func (a *Admin) prepare(ctx context.Context, in types.RoutingAssignment) (types.RoutingAssignment, error) {
	norm, err := NormalizeAssignment(in)
	if err != nil {
		return norm, err
	}

	m, err := a.store.GetModel(ctx, norm.ModelID)
	if err != nil {
		return norm, fmt.Errorf("failed to load model: %w", err)
	}
	if m == nil {
		return norm, &ValidationError{Field: "model_id", Message: "unknown model " + norm.ModelID.String()}
	}
	if norm.RetryModelID != nil {
		retry, err := a.store.GetModel(ctx, *norm.RetryModelID)
		if err != nil {
			return norm, fmt.Errorf("failed to load retry model: %w", err)
		}
		if retry == nil {
			return norm, &ValidationError{Field: "retry_model_id", Message: "unknown model " + norm.RetryModelID.String()}
		}
	}
	return norm, nil
}

func (a *Admin) validateModel(m types.Model) error {
	if err := a.validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: fe.Field(), Message: fmt.Sprintf("failed %q check", fe.Tag())}
		}
		return &ValidationError{Field: "model", Message: err.Error()}
	}
	return nil
}
