// Package langcode converts ordinary language codes (ISO 639-1, BCP 47)
// into the language-code alphabet a model family was trained with.
//
//	M2M   en, uk, zh
//	BART  en_XX, uk_UA, zh_CN   (mBART-50)
//	NLLB  eng_Latn, ukr_Cyrl, zho_Hans
//
// The result is still a bare code; prefix.Resolve adds the tag syntax.
package langcode

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"github.com/valpere/metaltran/internal"
	"github.com/valpere/metaltran/internal/prefix"
)

var (
	nllbCode = regexp.MustCompile(`^[a-z]{3}_[A-Z][a-z]{3}$`)
	bartCode = regexp.MustCompile(`^[a-z]{2}_[A-Z]{2}$`)
)

// mBART-50 uses a placeholder region for these languages.
var bartOverrides = map[string]string{
	"en": "en_XX",
	"es": "es_XX",
	"fr": "fr_XX",
	"ja": "ja_XX",
	"nl": "nl_XX",
	"pt": "pt_XX",
	"tl": "tl_XX",
}

// NLLB-200 names individual languages where ISO 639-3 has a macrolanguage.
var nllbOverrides = map[string]string{
	"ar": "arb",
	"fa": "pes",
	"ms": "zsm",
	"lv": "lvs",
	"uz": "uzn",
	"sw": "swh",
	"ne": "npi",
}

// Normalize maps code to family's alphabet. Codes already in that alphabet
// are returned unchanged.
func Normalize(family prefix.Family, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: empty language code", internal.ErrInvalidRequest)
	}

	switch family {
	case prefix.NLLB:
		if nllbCode.MatchString(code) {
			return code, nil
		}
	case prefix.BART:
		if bartCode.MatchString(code) {
			return code, nil
		}
	case prefix.M2M:
	default:
		return "", fmt.Errorf("%w: unknown model family %s", internal.ErrInvalidConfig, family)
	}

	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: unrecognised language code %q: %w", internal.ErrInvalidRequest, code, err)
	}
	base, _ := tag.Base()

	switch family {
	case prefix.M2M:
		return base.String(), nil

	case prefix.BART:
		if c, ok := bartOverrides[base.String()]; ok {
			return c, nil
		}
		region, _ := tag.Region()
		return base.String() + "_" + region.String(), nil

	default:
		iso3, ok := nllbOverrides[base.String()]
		if !ok {
			iso3 = base.ISO3()
		}
		script, _ := tag.Script()
		return iso3 + "_" + script.String(), nil
	}
}

// Base returns the two-letter (or three-letter when none exists) language
// of a code in any family's alphabet. It is used to compare a detected
// language with a requested one.
func Base(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if i := strings.IndexByte(code, '_'); i > 0 && (nllbCode.MatchString(code) || bartCode.MatchString(code)) {
		code = code[:i]
	}
	for short, long := range nllbOverrides {
		if code == long {
			return short
		}
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}
