// Package validator checks that a translation came out in the requested
// target language.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/metaltran/internal/detector"
	"github.com/valpere/metaltran/internal/langcode"
)

// minValidationLength is the rune count below which detection is too
// unreliable to act on.
const minValidationLength = 20

var (
	ErrEmptyTranslation = errors.New("translation is empty")
	ErrLanguageMismatch = errors.New("translation language mismatch")
)

type Validator struct {
	det *detector.Detector
}

// New returns a Validator using det, or a detector over all languages when
// det is nil.
func New(det *detector.Detector) *Validator {
	if det == nil {
		det = detector.New()
	}
	return &Validator{det: det}
}

// Check returns nil when translated looks like targetCode. targetCode may
// be in any model family's alphabet ("uk", "uk_UA", "ukr_Cyrl").
//
// Short texts and texts whose language cannot be determined pass. An empty
// translation of a non-empty source is reported as ErrEmptyTranslation.
func (v *Validator) Check(translated, targetCode string) error {
	want := langcode.Base(targetCode)
	if want == "" {
		return nil
	}

	text := strings.TrimSpace(translated)
	if text == "" {
		return ErrEmptyTranslation
	}
	if len([]rune(text)) < minValidationLength {
		return nil
	}

	got, ok := v.det.DetectISO(text)
	if !ok {
		return nil
	}
	if got != want {
		return fmt.Errorf("%w: expected %s but detected %s", ErrLanguageMismatch, want, got)
	}
	return nil
}
