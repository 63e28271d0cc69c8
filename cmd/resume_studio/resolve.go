package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/types"
)

var (
	resolveScenario string
	resolveRole     string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which model a scenario routes to for a role",
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveScenario, "scenario", "", "Scenario key, e.g. resume_adaptation (required)")
	resolveCmd.Flags().StringVar(&resolveRole, "role", string(types.RolePublic), "Role: public, friend or super_admin")
	_ = resolveCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, _ []string) error {
	role := types.Role(resolveRole)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", resolveRole)
	}

	a, err := openCatalog(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	scenario := types.ScenarioKey(resolveScenario)
	route, err := a.resolver.Resolve(cmd.Context(), role, scenario)
	if err != nil {
		return err
	}

	out := struct {
		Resolved bool                 `json:"resolved"`
		Route    *types.ResolvedRoute `json:"route"`
	}{Resolved: route != nil, Route: route}
	if route == nil {
		out.Route = routing.FallbackRoute(role, scenario, cfg.FallbackModel())
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
