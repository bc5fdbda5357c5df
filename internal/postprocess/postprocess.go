// Package postprocess tidies assembled model output before it is shown or
// stored.
package postprocess

import (
	"regexp"
	"strings"
)

// DefaultMaxRepeat is the number of consecutive copies of a phrase kept by
// Clean. Longer runs are a decoding loop, not content.
const DefaultMaxRepeat = 3

// maxLoopWords bounds the phrase length examined for decoding loops.
const maxLoopWords = 8

// Clean removes common artifacts of neural translation output:
//  1. special tokens that leaked through detokenization
//  2. phrases repeated more than maxRepeat times in a row
//  3. runs of spaces and tabs
//
// maxRepeat <= 0 means DefaultMaxRepeat.
func Clean(text string, maxRepeat int) string {
	if maxRepeat <= 0 {
		maxRepeat = DefaultMaxRepeat
	}
	text = removeSpecialTokens(text)
	text = collapseLoops(text, maxRepeat)
	text = normalizeSpacing(text)
	return strings.TrimSpace(text)
}

var specialTokenRe = regexp.MustCompile(`</?s>|<unk>|<pad>|<mask>`)

func removeSpecialTokens(text string) string {
	return specialTokenRe.ReplaceAllString(text, "")
}

// collapseLoops keeps at most maxRepeat consecutive copies of any phrase of
// up to maxLoopWords words. Words are compared exactly. When a loop is
// collapsed the text is rejoined with single spaces.
func collapseLoops(text string, maxRepeat int) string {
	words := strings.Fields(text)
	if len(words) <= maxRepeat {
		return text
	}

	changed := false
	for size := 1; size <= maxLoopWords; size++ {
		var out []string
		for i := 0; i < len(words); {
			copies := 1
			for i+(copies+1)*size <= len(words) && equalWords(words[i:i+size], words[i+copies*size:i+(copies+1)*size]) {
				copies++
			}
			if copies > maxRepeat {
				for range maxRepeat {
					out = append(out, words[i:i+size]...)
				}
				i += copies * size
				changed = true
				continue
			}
			out = append(out, words[i])
			i++
		}
		words = out
	}

	if !changed {
		return text
	}
	return strings.Join(words, " ")
}

func equalWords(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)

func normalizeSpacing(text string) string {
	return multiSpaceRe.ReplaceAllString(text, " ")
}
