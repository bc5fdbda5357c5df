package store

// levenshtein returns the rune-level edit distance between a and b using
// two rolling rows.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// stringSimilarity is 1 minus the edit distance over the longer length.
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// lengthAllows reports whether the length difference alone still lets a
// and b reach threshold, so the edit distance can be skipped otherwise.
func lengthAllows(a, b string, threshold float64) bool {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return true
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1.0-float64(diff)/float64(maxLen) >= threshold
}
