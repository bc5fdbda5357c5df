// Package prefix maps a model family and a language pair to the literal
// source and target tags the translation engine expects.
package prefix

import (
	"fmt"
	"strings"

	"github.com/valpere/metaltran/internal"
)

// Family is the class of the underlying translation model. It decides the
// syntax of the language tags.
type Family int

const (
	M2M Family = iota
	BART
	NLLB
)

func (f Family) String() string {
	switch f {
	case M2M:
		return "m2m"
	case BART:
		return "bart"
	case NLLB:
		return "nllb"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	return f == M2M || f == BART || f == NLLB
}

// ParseFamily accepts the family name in any case, plus the common model
// names m2m100 and mbart.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "m2m", "m2m100", "m2m_100":
		return M2M, nil
	case "bart", "mbart":
		return BART, nil
	case "nllb":
		return NLLB, nil
	}
	return 0, fmt.Errorf("%w: unknown model family %q", internal.ErrInvalidConfig, name)
}

// Tags holds the resolved source and target markers for one request.
type Tags struct {
	Source string
	Target string
}

// Resolve returns the tags for sourceCode and targetCode under family.
// There is no fallback: an unknown family is a configuration error.
func Resolve(family Family, sourceCode, targetCode string) (Tags, error) {
	switch family {
	case M2M:
		return Tags{Source: "__" + sourceCode + "__", Target: "__" + targetCode + "__"}, nil
	case BART:
		return Tags{Source: "[" + sourceCode + "]", Target: "[" + targetCode + "]"}, nil
	case NLLB:
		return Tags{Source: sourceCode, Target: targetCode}, nil
	}
	return Tags{}, fmt.Errorf("%w: unknown model family %s", internal.ErrInvalidConfig, family)
}
