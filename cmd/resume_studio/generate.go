package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/types"
)

var (
	generateResumeFile  string
	generateVacancyFile string
	generateOutFile     string
	generateRole        string
	generateLetter      bool
	generateLocale      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Tailor a resume to a vacancy",
	Long:  "Tailor a resume (JSON) to a vacancy (JSON), score the result and optionally write a cover letter.",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateResumeFile, "resume", "r", "", "Path to resume JSON (required)")
	generateCmd.Flags().StringVarP(&generateVacancyFile, "vacancy", "v", "", "Path to vacancy JSON (required)")
	generateCmd.Flags().StringVarP(&generateOutFile, "out", "o", "", "Output path (default stdout)")
	generateCmd.Flags().StringVar(&generateRole, "role", string(types.RolePublic), "Role used for model routing")
	generateCmd.Flags().BoolVar(&generateLetter, "cover-letter", false, "Also write a cover letter")
	generateCmd.Flags().StringVar(&generateLocale, "locale", "en-US", "Cover letter locale")
	_ = generateCmd.MarkFlagRequired("resume")
	_ = generateCmd.MarkFlagRequired("vacancy")
	rootCmd.AddCommand(generateCmd)
}

// generateOutput is what the generate command prints.
type generateOutput struct {
	Generation  *types.GenerationResult `json:"generation"`
	CoverLetter *types.CoverLetter      `json:"cover_letter,omitempty"`
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	req, err := requesterFor(generateRole)
	if err != nil {
		return err
	}
	var base types.ResumeContent
	if err := readJSONFile(generateResumeFile, &base); err != nil {
		return err
	}
	var vacancy types.Vacancy
	if err := readJSONFile(generateVacancyFile, &vacancy); err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var out generateOutput
	out.Generation, err = a.generator.GenerateResume(cmd.Context(), &base, vacancy, nil, req)
	if err != nil {
		return err
	}
	if a.db != nil {
		if err := a.db.SaveGeneration(cmd.Context(), req, out.Generation); err != nil {
			return err
		}
	}

	if generateLetter {
		out.CoverLetter, err = a.generator.GenerateCoverLetter(cmd.Context(), &out.Generation.Content, vacancy, types.CoverLetterSettings{Locale: generateLocale}, req)
		if err != nil {
			return err
		}
	}
	return writeOutput(cmd.OutOrStdout(), generateOutFile, out)
}

func requesterFor(role string) (types.Requester, error) {
	r := types.Role(role)
	if !r.Valid() {
		return types.Requester{}, fmt.Errorf("unknown role %q", role)
	}
	return types.Requester{Role: r}, nil
}
