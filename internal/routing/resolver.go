package routing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/types"
)

// Catalog is the read side of the model catalog store. Missing rows are
// reported as (nil, nil).
type Catalog interface {
	GetRoleOverride(ctx context.Context, scenario types.ScenarioKey, role types.Role) (*types.RoutingAssignment, error)
	GetScenarioDefault(ctx context.Context, scenario types.ScenarioKey) (*types.RoutingAssignment, error)
	GetModel(ctx context.Context, id uuid.UUID) (*types.Model, error)
}

// Resolver applies override precedence over a Catalog. It keeps no state
// between calls apart from collapsing concurrent identical lookups.
type Resolver struct {
	catalog Catalog
	group   singleflight.Group
}

// NewResolver creates a resolver over catalog.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns the route for role and scenario, or (nil, nil) when no
// assignment with an active primary model exists. A role override wins over
// the scenario default; an override whose model is inactive or missing falls
// through to the default.
func (r *Resolver) Resolve(ctx context.Context, role types.Role, scenario types.ScenarioKey) (*types.ResolvedRoute, error) {
	policy, ok := PolicyFor(scenario)
	if !ok {
		return nil, &ValidationError{Field: "scenario", Message: "unknown scenario " + string(scenario)}
	}

	rt, err := r.ResolveRuntimeModel(ctx, role, scenario)
	if err != nil || rt == nil {
		return nil, err
	}

	route := &types.ResolvedRoute{
		Scenario:       scenario,
		Role:           role,
		Source:         rt.Source,
		Model:          rt.Model,
		RetryModel:     rt.RetryModel,
		Temperature:    rt.Assignment.Temperature,
		MaxTokens:      rt.Assignment.MaxTokens,
		ResponseFormat: rt.Assignment.ResponseFormat,
	}
	if rt.Assignment.StrategyKey != nil && policy.AllowStrategyKey {
		route.StrategyKey = *rt.Assignment.StrategyKey
	}
	if !policy.AllowRetryModel {
		route.RetryModel = nil
	}
	if route.Temperature == 0 {
		route.Temperature = policy.DefaultTemperature
	}
	if route.MaxTokens == 0 {
		route.MaxTokens = policy.DefaultMaxTokens
	}
	if route.ResponseFormat == "" {
		route.ResponseFormat = policy.ResponseFormat
	}
	return route, nil
}

// ResolveRuntimeModel returns the raw catalog view of the winning assignment.
func (r *Resolver) ResolveRuntimeModel(ctx context.Context, role types.Role, scenario types.ScenarioKey) (*types.RuntimeModel, error) {
	key := string(role) + "|" + string(scenario)
	// The shared lookup outlives any one caller's cancellation; each caller
	// still stops waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.resolveRuntimeModel(shared, role, scenario)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	rt, _ := res.Val.(*types.RuntimeModel)
	if rt == nil {
		return nil, nil
	}
	// Shared results must not be mutated by concurrent callers.
	cp := *rt
	return &cp, nil
}

func (r *Resolver) resolveRuntimeModel(ctx context.Context, role types.Role, scenario types.ScenarioKey) (*types.RuntimeModel, error) {
	if role.Valid() {
		override, err := r.catalog.GetRoleOverride(ctx, scenario, role)
		if err != nil {
			return nil, &CatalogError{Message: fmt.Sprintf("failed to read %s override for %s", role, scenario), Cause: err}
		}
		rt, err := r.hydrate(ctx, override, types.RouteSourceRoleOverride)
		if err != nil {
			return nil, err
		}
		if rt != nil {
			return rt, nil
		}
		if override != nil {
			logx.Warn().
				Str("scenario", string(scenario)).
				Str("role", string(role)).
				Str("model_id", override.ModelID.String()).
				Msg("role override model inactive, falling back to scenario default")
		}
	}

	def, err := r.catalog.GetScenarioDefault(ctx, scenario)
	if err != nil {
		return nil, &CatalogError{Message: fmt.Sprintf("failed to read default for %s", scenario), Cause: err}
	}
	return r.hydrate(ctx, def, types.RouteSourceScenarioDefault)
}

// hydrate loads the models an assignment references. It returns nil when the
// primary model is missing or inactive; an unusable retry model is dropped.
func (r *Resolver) hydrate(ctx context.Context, a *types.RoutingAssignment, source types.RouteSource) (*types.RuntimeModel, error) {
	if a == nil {
		return nil, nil
	}

	model, err := r.catalog.GetModel(ctx, a.ModelID)
	if err != nil {
		return nil, &CatalogError{Message: "failed to load model " + a.ModelID.String(), Cause: err}
	}
	if !model.IsActive() {
		return nil, nil
	}

	rt := &types.RuntimeModel{Source: source, Assignment: a, Model: model}
	if a.RetryModelID != nil {
		retry, err := r.catalog.GetModel(ctx, *a.RetryModelID)
		if err != nil {
			return nil, &CatalogError{Message: "failed to load retry model " + a.RetryModelID.String(), Cause: err}
		}
		if retry.IsActive() {
			rt.RetryModel = retry
		}
	}
	return rt, nil
}
