package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/types"
)

func TestHeuristicDetails_VerbatimSignalsMatched(t *testing.T) {
	vacancy := types.Vacancy{Title: "Platform Engineer", Description: "Kubernetes and Terraform"}
	signals := []types.VacancySignal{
		{Name: "Kubernetes", Type: types.SignalMustHave, Weight: 1},
		{Name: "Terraform", Type: types.SignalNiceToHave, Weight: 0.5},
		{Name: "Distributed Systems", Type: types.SignalCoreRequirement, Weight: 0.5},
	}
	before := "Ran services on kubernetes."
	after := "Ran services on Kubernetes.\n- Designed distributed systems"

	details := HeuristicDetails(before, after, vacancy, signals)

	assert.Equal(t, types.ScoreVersionDeterministic, details.Version)
	assert.True(t, details.FallbackUsed)
	require.Len(t, details.Matched, 2)
	assert.Equal(t, "Kubernetes", details.Matched[0].Signal)
	assert.Equal(t, "Distributed Systems", details.Matched[1].Signal)
	assert.Equal(t, []string{"Designed distributed systems"}, details.Matched[1].EvidenceAfter)
	require.Len(t, details.Missing, 1)
	assert.Equal(t, "Terraform", details.Missing[0].Signal)

	// weights 1, 0.5, 0.5: before 1/2, after 1.5/2
	assert.Equal(t, 50, details.ScoreBefore)
	assert.Equal(t, 75, details.ScoreAfter)
	assert.Equal(t, VacancyHash(vacancy), details.VacancyHash)
}

func TestHeuristicDetails_DerivesSignalsFromVacancy(t *testing.T) {
	vacancy := types.Vacancy{Title: "Go Developer", Description: "PostgreSQL, gRPC"}
	details := HeuristicDetails("Go", "Go developer using gRPC", vacancy, nil)

	names := make([]string, 0, len(details.Signals))
	for _, s := range details.Signals {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"developer", "go", "grpc", "postgresql"}, names)

	matched := make([]string, 0, len(details.Matched))
	for _, m := range details.Matched {
		matched = append(matched, m.Signal)
	}
	assert.Equal(t, []string{"developer", "go", "grpc"}, matched)
}

func TestVacancyHash(t *testing.T) {
	a := VacancyHash(types.Vacancy{Title: "Go Dev", Description: "Needs  Go"})
	b := VacancyHash(types.Vacancy{Title: "go dev", Description: "needs go"})
	c := VacancyHash(types.Vacancy{Title: "Go Dev", Description: "Needs Rust"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestSummarize_Empty(t *testing.T) {
	d := Summarize(nil)
	assert.Equal(t, 0, d.ScoreBefore)
	assert.Empty(t, d.Matched)
	assert.NotNil(t, d.Missing)
}

func TestHeuristicDetails_HTMLVacancyHasNoTagSignals(t *testing.T) {
	vacancy := types.Vacancy{
		Title:       "Backend",
		Description: "<ul><li>Go</li><li>Kubernetes</li></ul><div>PostgreSQL</div>",
	}
	details := HeuristicDetails("Go", "Go on Kubernetes", vacancy, nil)

	names := make([]string, 0, len(details.Signals))
	for _, s := range details.Signals {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"backend", "go", "kubernetes", "postgresql"}, names)
}
