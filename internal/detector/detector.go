// Package detector guesses the language of a text. It backs "-s auto" and
// output validation.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// Detector wraps a lingua language detector. Building one loads language
// models and is slow; reuse the instance.
type Detector struct {
	detector  lingua.LanguageDetector
	languages []lingua.Language
}

// New builds a detector restricted to the given ISO 639-1 codes. Unknown
// codes are ignored; with fewer than two known codes every language lingua
// supports is considered.
func New(isoCodes ...string) *Detector {
	langs := languagesFor(isoCodes)

	builder := lingua.NewLanguageDetectorBuilder()
	if len(langs) >= 2 {
		builder = builder.FromLanguages(langs...)
	} else {
		langs = nil
		builder = builder.FromAllLanguages()
	}

	return &Detector{detector: builder.Build(), languages: langs}
}

func languagesFor(isoCodes []string) []lingua.Language {
	var langs []lingua.Language
	for _, code := range isoCodes {
		for _, lang := range lingua.AllLanguages() {
			if strings.EqualFold(lang.IsoCode639_1().String(), code) {
				langs = append(langs, lang)
				break
			}
		}
	}
	return langs
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Confidence is the probability in [0, 1] that text is written in the
// language with the given ISO 639-1 code. Unknown codes score 0.
func (d *Detector) Confidence(text, isoCode string) float64 {
	langs := languagesFor([]string{isoCode})
	if len(langs) == 0 {
		return 0
	}
	return d.detector.ComputeLanguageConfidence(text, langs[0])
}
