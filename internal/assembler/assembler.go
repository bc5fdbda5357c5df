// Package assembler turns per-batch engine output back into text.
//
// Each output sequence starts with the forced target-language tag. The tag
// is removed from every segment and the segments are concatenated in batch
// order with no separator.
package assembler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Detokenizer is the part of a tokenizer the assembler needs.
type Detokenizer interface {
	Detokenize(tokens []string) string
}

type Assembler struct {
	detok     Detokenizer
	targetTag string
}

func New(detok Detokenizer, targetTag string) *Assembler {
	return &Assembler{detok: detok, targetTag: targetTag}
}

// Assemble joins the cleaned segment of every output, in order.
func (a *Assembler) Assemble(outputs [][]string) string {
	var sb strings.Builder
	for _, out := range outputs {
		sb.WriteString(a.Segment(out))
	}
	return sb.String()
}

// Segment detokenizes one output sequence without its language tag. When
// the first token is the expected tag it is dropped before detokenizing.
// Otherwise the text is cut with StripTargetTag.
func (a *Assembler) Segment(out []string) string {
	if len(out) > 0 && a.targetTag != "" && out[0] == a.targetTag {
		return a.detok.Detokenize(out[1:])
	}
	return StripTargetTag(a.detok.Detokenize(out))
}

// StripTargetTag removes everything up to and including the first
// whitespace character. A string with no whitespace is returned as is.
func StripTargetTag(text string) string {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return text
	}
	_, size := utf8.DecodeRuneInString(text[i:])
	return text[i+size:]
}
