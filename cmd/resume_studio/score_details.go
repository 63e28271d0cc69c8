package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/types"
)

var (
	scoreBeforeFile  string
	scoreAfterFile   string
	scoreVacancyFile string
	scoreOutFile     string
	scoreRole        string
)

var scoreDetailsCmd = &cobra.Command{
	Use:   "score-details",
	Short: "Explain how well a resume covers a vacancy, signal by signal",
	RunE:  runScoreDetails,
}

func init() {
	scoreDetailsCmd.Flags().StringVar(&scoreBeforeFile, "before", "", "Path to the original resume JSON (required)")
	scoreDetailsCmd.Flags().StringVar(&scoreAfterFile, "after", "", "Path to the tailored resume JSON (required)")
	scoreDetailsCmd.Flags().StringVarP(&scoreVacancyFile, "vacancy", "v", "", "Path to vacancy JSON (required)")
	scoreDetailsCmd.Flags().StringVarP(&scoreOutFile, "out", "o", "", "Output path (default stdout)")
	scoreDetailsCmd.Flags().StringVar(&scoreRole, "role", string(types.RolePublic), "Role used for model routing")
	for _, f := range []string{"before", "after", "vacancy"} {
		_ = scoreDetailsCmd.MarkFlagRequired(f)
	}
	rootCmd.AddCommand(scoreDetailsCmd)
}

func runScoreDetails(cmd *cobra.Command, _ []string) error {
	req, err := requesterFor(scoreRole)
	if err != nil {
		return err
	}
	var before, after types.ResumeContent
	if err := readJSONFile(scoreBeforeFile, &before); err != nil {
		return err
	}
	if err := readJSONFile(scoreAfterFile, &after); err != nil {
		return err
	}
	var vacancy types.Vacancy
	if err := readJSONFile(scoreVacancyFile, &vacancy); err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.scorer.ScoreDetails(cmd.Context(), &before, &after, vacancy, nil, req)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), scoreOutFile, result)
}
