package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResumeContent_Text(t *testing.T) {
	r := &ResumeContent{
		Title:   "Backend Engineer",
		Summary: "Builds Go services.",
		Experience: []ExperienceEntry{
			{Company: "Acme", Role: "Engineer", Period: "2020-2024", Bullets: []string{"Shipped Kafka pipeline", "  "}},
		},
		Skills: []string{"Go", "PostgreSQL"},
	}

	text := r.Text()
	assert.Contains(t, text, "Backend Engineer")
	assert.Contains(t, text, "Engineer, Acme 2020-2024")
	assert.Contains(t, text, "- Shipped Kafka pipeline")
	assert.Contains(t, text, "Skills: Go, PostgreSQL")
	assert.NotContains(t, text, "\n\n")
}

func TestResumeContent_TextNil(t *testing.T) {
	var r *ResumeContent
	assert.Equal(t, "", r.Text())
	assert.Equal(t, "", (&ResumeContent{}).Text())
}
