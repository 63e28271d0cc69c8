package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/types"
)

// -----------------------------------------------------------------------------
// Model catalog
// -----------------------------------------------------------------------------

const modelColumns = `id, provider, model_key, display_name, status, input_price_per_m,
	output_price_per_m, cached_input_price_per_m, context_window, max_output_tokens,
	capabilities, created_at, updated_at`

func scanModel(row pgx.Row) (*types.Model, error) {
	var m types.Model
	var capabilities []byte
	err := row.Scan(&m.ID, &m.Provider, &m.ModelKey, &m.DisplayName, &m.Status,
		&m.InputPricePerM, &m.OutputPricePerM, &m.CachedInputPricePerM,
		&m.ContextWindow, &m.MaxOutputTokens, &capabilities, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(capabilities) > 0 {
		_ = json.Unmarshal(capabilities, &m.Capabilities)
	}
	return &m, nil
}

// FindScenario returns the catalog entry for a scenario key, or nil if unknown.
// Scenarios are a fixed process-wide table, not rows.
func (db *DB) FindScenario(_ context.Context, key types.ScenarioKey) (*types.Scenario, error) {
	p, ok := routing.PolicyFor(key)
	if !ok {
		return nil, nil
	}
	s := p.Scenario
	return &s, nil
}

// GetModel retrieves a model by ID, or nil if it does not exist.
func (db *DB) GetModel(ctx context.Context, id uuid.UUID) (*types.Model, error) {
	m, err := scanModel(db.pool.QueryRow(ctx,
		`SELECT `+modelColumns+` FROM llm_models WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return m, nil
}

// IsModelActive reports whether a model exists and is active.
func (db *DB) IsModelActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM llm_models WHERE id = $1 AND status = 'active')`, id,
	).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to check model status: %w", err)
	}
	return active, nil
}

// ListModels returns all models ordered by display name.
func (db *DB) ListModels(ctx context.Context) ([]types.Model, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+modelColumns+` FROM llm_models ORDER BY display_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	models := []types.Model{}
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, *m)
	}
	return models, rows.Err()
}

// CreateModel inserts a model. The ID is generated when m.ID is zero.
func (db *DB) CreateModel(ctx context.Context, m types.Model) (*types.Model, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	capabilities, err := json.Marshal(m.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal capabilities: %w", err)
	}

	created, err := scanModel(db.pool.QueryRow(ctx,
		`INSERT INTO llm_models (id, provider, model_key, display_name, status, input_price_per_m,
		                         output_price_per_m, cached_input_price_per_m, context_window,
		                         max_output_tokens, capabilities)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+modelColumns,
		m.ID, m.Provider, m.ModelKey, m.DisplayName, m.Status, m.InputPricePerM,
		m.OutputPricePerM, m.CachedInputPricePerM, m.ContextWindow, m.MaxOutputTokens, capabilities,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return created, nil
}

// UpdateModel replaces a model's fields. It returns nil if the model does not exist.
func (db *DB) UpdateModel(ctx context.Context, m types.Model) (*types.Model, error) {
	capabilities, err := json.Marshal(m.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal capabilities: %w", err)
	}

	updated, err := scanModel(db.pool.QueryRow(ctx,
		`UPDATE llm_models
		 SET provider = $2, model_key = $3, display_name = $4, status = $5,
		     input_price_per_m = $6, output_price_per_m = $7, cached_input_price_per_m = $8,
		     context_window = $9, max_output_tokens = $10, capabilities = $11, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+modelColumns,
		m.ID, m.Provider, m.ModelKey, m.DisplayName, m.Status, m.InputPricePerM,
		m.OutputPricePerM, m.CachedInputPricePerM, m.ContextWindow, m.MaxOutputTokens, capabilities,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update model: %w", err)
	}
	return updated, nil
}

// SetModelStatus activates or deactivates a model. It returns nil if the model does not exist.
func (db *DB) SetModelStatus(ctx context.Context, id uuid.UUID, status types.ModelStatus) (*types.Model, error) {
	m, err := scanModel(db.pool.QueryRow(ctx,
		`UPDATE llm_models SET status = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+modelColumns,
		id, status,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to set model status: %w", err)
	}
	return m, nil
}

// -----------------------------------------------------------------------------
// Routing assignments
// -----------------------------------------------------------------------------

const assignmentColumns = `scenario, role, model_id, retry_model_id, strategy_key,
	temperature, max_tokens, response_format, updated_at`

func scanAssignment(row pgx.Row) (*types.RoutingAssignment, error) {
	var a types.RoutingAssignment
	var role string
	err := row.Scan(&a.Scenario, &role, &a.ModelID, &a.RetryModelID, &a.StrategyKey,
		&a.Temperature, &a.MaxTokens, &a.ResponseFormat, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if role != "" {
		r := types.Role(role)
		a.Role = &r
	}
	return &a, nil
}

func (db *DB) getAssignment(ctx context.Context, scenario types.ScenarioKey, role string) (*types.RoutingAssignment, error) {
	a, err := scanAssignment(db.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM llm_routing_assignments WHERE scenario = $1 AND role = $2`,
		scenario, role,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get routing assignment: %w", err)
	}
	return a, nil
}

// GetScenarioDefault returns the default assignment for a scenario, or nil.
func (db *DB) GetScenarioDefault(ctx context.Context, scenario types.ScenarioKey) (*types.RoutingAssignment, error) {
	return db.getAssignment(ctx, scenario, "")
}

// GetRoleOverride returns the role's override for a scenario, or nil.
func (db *DB) GetRoleOverride(ctx context.Context, scenario types.ScenarioKey, role types.Role) (*types.RoutingAssignment, error) {
	return db.getAssignment(ctx, scenario, string(role))
}

// upsertAssignment writes the whole row in one statement, so concurrent
// readers see either the previous assignment or the new one.
func (db *DB) upsertAssignment(ctx context.Context, scenario types.ScenarioKey, role string, a types.RoutingAssignment) (*types.RoutingAssignment, error) {
	stored, err := scanAssignment(db.pool.QueryRow(ctx,
		`INSERT INTO llm_routing_assignments (scenario, role, model_id, retry_model_id, strategy_key,
		                                      temperature, max_tokens, response_format)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (scenario, role) DO UPDATE SET
		     model_id = EXCLUDED.model_id,
		     retry_model_id = EXCLUDED.retry_model_id,
		     strategy_key = EXCLUDED.strategy_key,
		     temperature = EXCLUDED.temperature,
		     max_tokens = EXCLUDED.max_tokens,
		     response_format = EXCLUDED.response_format,
		     updated_at = NOW()
		 RETURNING `+assignmentColumns,
		scenario, role, a.ModelID, a.RetryModelID, a.StrategyKey,
		a.Temperature, a.MaxTokens, a.ResponseFormat,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert routing assignment: %w", err)
	}
	return stored, nil
}

// UpsertScenarioDefault creates or replaces a scenario's default assignment.
func (db *DB) UpsertScenarioDefault(ctx context.Context, scenario types.ScenarioKey, a types.RoutingAssignment) (*types.RoutingAssignment, error) {
	return db.upsertAssignment(ctx, scenario, "", a)
}

// UpsertRoleOverride creates or replaces a role's override for a scenario.
func (db *DB) UpsertRoleOverride(ctx context.Context, scenario types.ScenarioKey, role types.Role, a types.RoutingAssignment) (*types.RoutingAssignment, error) {
	return db.upsertAssignment(ctx, scenario, string(role), a)
}

// DeleteRoleOverride removes a role override so the role falls back to the scenario default.
func (db *DB) DeleteRoleOverride(ctx context.Context, scenario types.ScenarioKey, role types.Role) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM llm_routing_assignments WHERE scenario = $1 AND role = $2`,
		scenario, string(role),
	)
	if err != nil {
		return fmt.Errorf("failed to delete role override: %w", err)
	}
	return nil
}

var _ routing.Store = (*DB)(nil)
