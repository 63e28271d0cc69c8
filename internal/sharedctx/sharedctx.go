// Package sharedctx builds the resume + vacancy context that is reused by every
// prompt within one generation request.
package sharedctx

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/resume-studio/internal/types"
)

// charsPerToken is the rough characters-per-token ratio used for estimates.
const charsPerToken = 4

// Build combines the base resume and the vacancy into one prompt fragment and
// estimates its token cost. Vacancy descriptions pasted as HTML are reduced to text.
func Build(baseResume *types.ResumeContent, vacancy types.Vacancy) types.SharedContext {
	var sb strings.Builder

	sb.WriteString("<candidate_resume>\n")
	sb.WriteString(strings.TrimSpace(baseResume.Text()))
	sb.WriteString("\n</candidate_resume>\n\n")

	sb.WriteString("<vacancy>\n")
	if t := strings.TrimSpace(vacancy.Title); t != "" {
		sb.WriteString("Title: " + t + "\n")
	}
	if c := strings.TrimSpace(vacancy.Company); c != "" {
		sb.WriteString("Company: " + c + "\n")
	}
	sb.WriteString(VacancyText(vacancy.Description))
	sb.WriteString("\n</vacancy>\n")

	prompt := sb.String()
	return types.SharedContext{
		Prompt:             prompt,
		CacheTokenEstimate: EstimateTokens(prompt),
	}
}

// EstimateTokens returns ceil(runes/4).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// VacancyText returns the plain text of a vacancy description, stripping markup
// when the description looks like HTML.
func VacancyText(description string) string {
	description = strings.TrimSpace(description)
	if !looksLikeHTML(description) {
		return description
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return description
	}
	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	writeBlocks(&sb, doc.Selection)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = collapseSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// blockTags start a new line in the extracted text.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true,
	"div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// writeBlocks appends every text node under sel, breaking lines at block
// element boundaries and <br>.
func writeBlocks(sb *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch name := goquery.NodeName(c); {
		case name == "#text":
			sb.WriteString(c.Text())
		case name == "#comment":
		case name == "br":
			sb.WriteString("\n")
		case blockTags[name]:
			sb.WriteString("\n")
			writeBlocks(sb, c)
			sb.WriteString("\n")
		default:
			writeBlocks(sb, c)
		}
	})
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	for _, tag := range []string{"<p", "<li", "<ul", "<div", "<br", "<h1", "<h2", "<h3", "<body", "<html"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
