package textproc

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/ibeckermayer/narratives/internal/types"
)

// UnknownLanguage is returned when a detector cannot decide.
const UnknownLanguage = "unknown"

// Detector guesses the language of a text as a lower-case ISO 639-1 code.
type Detector interface {
	Detect(text string) string
}

// LinguaDetector detects languages with lingua-go.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector restricted to the given ISO 639-1 codes.
// With fewer than two known codes it falls back to all supported languages,
// since lingua needs at least two candidates to choose between.
func NewLinguaDetector(codes ...string) *LinguaDetector {
	var langs []lingua.Language
	for _, code := range codes {
		if lang, ok := languageForCode(code); ok {
			langs = append(langs, lang)
		}
	}

	builder := lingua.NewLanguageDetectorBuilder()
	var b lingua.LanguageDetectorBuilder
	if len(langs) >= 2 {
		b = builder.FromLanguages(langs...)
	} else {
		b = builder.FromAllLanguages()
	}
	return &LinguaDetector{detector: b.Build()}
}

func languageForCode(code string) (lingua.Language, bool) {
	code = strings.TrimSpace(code)
	for _, lang := range lingua.AllLanguages() {
		if strings.EqualFold(lang.IsoCode639_1().String(), code) {
			return lang, true
		}
	}
	return lingua.Unknown, false
}

// Detect returns the ISO 639-1 code of the most likely language, or
// UnknownLanguage.
func (d *LinguaDetector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return UnknownLanguage
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return UnknownLanguage
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(string) string

// Detect calls f(text).
func (f DetectorFunc) Detect(text string) string { return f(text) }

// FilterByLanguage keeps posts whose detected language equals language. An
// empty language disables filtering.
func FilterByLanguage(posts []types.Post, d Detector, language string) []types.Post {
	if language == "" || d == nil {
		return posts
	}
	language = strings.ToLower(language)

	var kept []types.Post
	for _, p := range posts {
		if d.Detect(p.Text) == language {
			kept = append(kept, p)
		}
	}
	return kept
}
