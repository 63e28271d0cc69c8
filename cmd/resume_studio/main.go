// Package main provides the resume-studio command line: the HTTP API server
// plus one-shot generation, scoring and routing commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/logx"
)

// cfg is populated before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "resume_studio",
	Short:         "Resume tailoring and cover letter service",
	Long:          "resume_studio tailors resumes to job vacancies with LLMs, scores the result and writes cover letters. Model choice per scenario and role is managed through a routing catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logx.Init(logx.LoggerOpts{Environment: logx.ParseEnvironment(cfg.Environment)})

		if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			logx.Debug().Msgf(format, args...)
		})); err != nil {
			logx.Warn().Err(err).Msg("failed to set GOMAXPROCS")
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
