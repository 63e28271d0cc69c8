package scoring

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords are tokens that never count as vacancy keywords.
var stopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "all": true, "also": true, "am": true,
	"an": true, "and": true, "any": true, "are": true, "as": true, "at": true, "be": true,
	"been": true, "being": true, "both": true, "but": true, "by": true, "can": true, "could": true,
	"did": true, "do": true, "does": true, "during": true, "each": true, "etc": true, "for": true,
	"from": true, "had": true, "has": true, "have": true, "having": true, "he": true, "her": true,
	"here": true, "his": true, "how": true, "if": true, "in": true, "into": true, "is": true,
	"it": true, "its": true, "just": true, "may": true, "more": true, "most": true, "must": true,
	"no": true, "not": true, "of": true, "on": true, "or": true, "other": true, "our": true,
	"ours": true, "over": true, "per": true, "plus": true, "should": true, "so": true, "some": true,
	"such": true, "than": true, "that": true, "the": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "those": true, "through": true,
	"to": true, "under": true, "up": true, "us": true, "very": true, "via": true, "was": true,
	"we": true, "were": true, "what": true, "when": true, "where": true, "which": true,
	"while": true, "who": true, "will": true, "with": true, "within": true, "would": true,
	"you": true, "your": true, "yours": true,
	// Vacancy boilerplate
	"ability": true, "candidate": true, "experience": true, "including": true, "job": true,
	"looking": true, "role": true, "join": true, "responsibilities": true, "requirements": true,
	"strong": true, "team": true, "work": true, "working": true, "year": true, "years": true,
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.'
}

// tokens splits text into lower-cased runs of letters, digits and "+#.", with
// trailing dots removed so sentence ends do not stick to words.
func tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !isTokenRune(r) })
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimRight(f, ".")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokens(text) {
		set[t] = true
	}
	return set
}

// Keywords returns the sorted distinct keywords of a vacancy: tokens of at least
// two runes that are neither stop words nor purely numeric.
func Keywords(vacancyText string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tokens(vacancyText) {
		if seen[t] || stopWords[t] || len([]rune(t)) < 2 || isNumeric(t) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != '+' {
			return false
		}
	}
	return true
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// containsPhrase reports whether phrase occurs in text case-insensitively and
// not as part of a longer word ("Go" does not match "Golang").
func containsPhrase(text, phrase string) bool {
	text, phrase = normalizeSpace(text), normalizeSpace(phrase)
	if phrase == "" {
		return false
	}

	for start := 0; start <= len(text)-len(phrase); {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)

		beforeOK := i == 0 || !isWordRune(lastRune(text[:i]))
		afterOK := end == len(text) || !isWordRune(firstRune(text[end:]))
		if beforeOK && afterOK {
			return true
		}
		start = i + len(string(firstRune(text[i:])))
	}
	return false
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	r := []rune(s)
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

// evidenceLines returns up to limit lines of text that contain phrase.
func evidenceLines(text, phrase string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" || !containsPhrase(line, phrase) {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}
