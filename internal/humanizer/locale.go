package humanizer

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// minDetectRunes is the shortest text language detection is attempted on.
const minDetectRunes = 40

var detectorLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Polish,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Swedish,
	lingua.Turkish,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectorLanguages...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}

// DetectLanguage returns the lower-case ISO 639-1 code of text's language, or
// "" when the text is too short or the language is unclear.
func DetectLanguage(text string) string {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minDetectRunes {
		return ""
	}
	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// localeLanguage returns the language subtag of a locale such as "en-US" or "de_DE".
func localeLanguage(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}

// localeMismatch reports the detected language when it differs from locale.
// Unknown locales or undetectable text never mismatch.
func localeMismatch(text, locale string) (string, bool) {
	want := localeLanguage(locale)
	if want == "" {
		return "", false
	}
	got := DetectLanguage(text)
	if got == "" || got == want {
		return got, false
	}
	return got, true
}
