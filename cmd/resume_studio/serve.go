package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/server"
	"github.com/jonathan/resume-studio/internal/server/ratelimit"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing resume generation, scoring, cover letters and routing administration.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}
	login, err := config.NewAdminCredentials()
	if err != nil {
		return err
	}
	limits, err := ratelimit.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid rate limit configuration: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	svc := server.Services{
		Generator:     a.generator,
		Scorer:        a.scorer,
		Humanizer:     a.humanizer,
		Resolver:      a.resolver,
		Admin:         routing.NewAdmin(a.store),
		FallbackModel: cfg.FallbackModel(),
	}
	if a.db != nil {
		svc.Results = a.db
		svc.Usage = a.db
		svc.Health = a.db
	}

	srv, err := server.New(server.Config{Addr: addr, JWT: jwtConfig, Login: login, RateLimit: limits}, svc)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
