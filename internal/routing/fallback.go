package routing

import (
	"context"

	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/types"
)

// RouteResolver is the resolution surface orchestrators depend on.
type RouteResolver interface {
	Resolve(ctx context.Context, role types.Role, scenario types.ScenarioKey) (*types.ResolvedRoute, error)
}

// FallbackRoute builds a route for scenario on the configured fallback model,
// using the scenario's default parameters.
func FallbackRoute(role types.Role, scenario types.ScenarioKey, model *types.Model) *types.ResolvedRoute {
	policy, _ := PolicyFor(scenario)
	format := policy.ResponseFormat
	if format == "" {
		format = types.ResponseFormatJSON
	}
	return &types.ResolvedRoute{
		Scenario:       scenario,
		Role:           role,
		Source:         types.RouteSourceFallback,
		Model:          model,
		Temperature:    policy.DefaultTemperature,
		MaxTokens:      policy.DefaultMaxTokens,
		ResponseFormat: format,
	}
}

// ResolveOrFallback resolves a route and never fails: an unresolved scenario
// or a catalog error yields the fallback route.
func ResolveOrFallback(ctx context.Context, r RouteResolver, role types.Role, scenario types.ScenarioKey, fallback *types.Model) *types.ResolvedRoute {
	if r != nil {
		route, err := r.Resolve(ctx, role, scenario)
		if err != nil {
			logx.Warn().Err(err).
				Str("scenario", string(scenario)).
				Str("role", string(role)).
				Msg("routing failed, using fallback model")
		} else if route != nil {
			return route
		} else {
			logx.Warn().
				Str("scenario", string(scenario)).
				Str("role", string(role)).
				Msg("routing unresolved, using fallback model")
		}
	}
	return FallbackRoute(role, scenario, fallback)
}
