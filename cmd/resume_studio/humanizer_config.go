package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/humanizer"
)

var humanizerConfigPath string

var humanizerConfigCmd = &cobra.Command{
	Use:   "humanizer-config",
	Short: "Print the effective cover letter humanizer settings",
	Long:  "Read the runtime config file (YAML or JSON) and print the normalized llm.coverLetterHumanizer settings.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := humanizerConfigPath
		if path == "" {
			path = cfg.RuntimeConfigPath
		}
		raw, err := config.LoadRuntimeConfig(path)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), humanizer.ResolveConfig(raw))
	},
}

func init() {
	humanizerConfigCmd.Flags().StringVar(&humanizerConfigPath, "config", "", "Runtime config file (overrides RUNTIME_CONFIG)")
	rootCmd.AddCommand(humanizerConfigCmd)
}
