package humanizer

import (
	"fmt"
	"strings"
)

// stockPhrases are openers and filler that reviewers read as machine-written.
// Entries are lower-case and matched against whitespace-normalized text.
var stockPhrases = []string{
	"i am writing to express my interest",
	"in today's fast-paced",
	"passionate about leveraging",
	"proven track record of success",
	"i believe i would be a great fit",
	"thank you for considering my application",
	"look no further",
	"rich tapestry",
	"delve into",
	"synergy",
	"dynamic team player",
	"results-driven professional",
	"hit the ground running",
	"a testament to",
}

// findStockPhrases returns every stock phrase present in text, in list order.
func findStockPhrases(text string) []string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	normalized = strings.ReplaceAll(normalized, "’", "'")

	var found []string
	for _, phrase := range stockPhrases {
		if strings.Contains(normalized, phrase) {
			found = append(found, phrase)
		}
	}
	return found
}

// stockPhraseNotes turns detected phrases into critique issues and fixes.
func stockPhraseNotes(text string) (issues, fixes []string) {
	for _, phrase := range findStockPhrases(text) {
		issues = append(issues, fmt.Sprintf("Uses stock phrase %q", phrase))
		fixes = append(fixes, fmt.Sprintf("Replace %q with a concrete detail from the resume", phrase))
	}
	return issues, fixes
}
