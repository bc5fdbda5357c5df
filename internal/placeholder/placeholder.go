// Package placeholder shields text the model must not touch (code, URLs,
// e-mail addresses, HTML tags) by swapping it for numbered markers
// [PH0], [PH1], … before translation and putting it back afterwards.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	reFencedCode = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`[^`\n]+`")
	reURL        = regexp.MustCompile(`\b(?:https?|ftp)://[^\s<>"'` + "`" + `]+[^\s<>"'.,;:!?)\]` + "`" + `]`)
	reEmail      = regexp.MustCompile(`\b[\w.+-]+@[\w-]+(?:\.[\w-]+)+\b`)
	reHTMLTag    = regexp.MustCompile(`</?[A-Za-z][^>]*>`)

	// Detokenized model output may carry spaces inside a marker.
	rePlaceholder = regexp.MustCompile(`\[\s*PH\s*(\d+)\s*\]`)
)

// Longest constructs first so a URL inside inline code stays in one marker.
var protected = []*regexp.Regexp{reFencedCode, reInlineCode, reURL, reEmail, reHTMLTag}

// Protect returns text with every protected span replaced by a marker and
// the original spans in marker order.
func Protect(text string) (string, []string) {
	var originals []string
	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(originals))
		originals = append(originals, match)
		return id
	}

	for _, re := range protected {
		text = re.ReplaceAllStringFunc(text, replace)
	}
	return text, originals
}

// Restore substitutes markers in text with the originals. Markers with an
// unknown index are left as they are.
func Restore(text string, originals []string) string {
	if len(originals) == 0 {
		return text
	}
	// A marker may wrap earlier markers (a tag around a URL is replaced after
	// the URL), so substitute until nothing changes.
	for range len(originals) + 1 {
		next := rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
			idx, err := strconv.Atoi(rePlaceholder.FindStringSubmatch(match)[1])
			if err != nil || idx >= len(originals) {
				return match
			}
			return originals[idx]
		})
		if next == text {
			break
		}
		text = next
	}
	return text
}

// Missing returns the indices of markers absent from the translated text.
// A marker nested in another marker's original counts as present when the
// outer one is.
func Missing(text string, originals []string) []int {
	seen := make(map[int]bool)
	pending := []string{text}
	for len(pending) > 0 {
		s := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, m := range rePlaceholder.FindAllStringSubmatch(s, -1) {
			idx, err := strconv.Atoi(m[1])
			if err != nil || idx >= len(originals) || seen[idx] {
				continue
			}
			seen[idx] = true
			pending = append(pending, originals[idx])
		}
	}

	var missing []int
	for i := range originals {
		if !seen[i] {
			missing = append(missing, i)
		}
	}
	return missing
}
