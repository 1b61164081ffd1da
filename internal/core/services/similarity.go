package services

// similarText returns the number of runes a and b have in common, found by
// taking the longest common substring and recursing on both sides of it.
func similarText(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	posA, posB, longest := 0, 0, 0
	for i := range a {
		for j := range b {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > longest {
				posA, posB, longest = i, j, k
			}
		}
	}
	if longest == 0 {
		return 0
	}

	return longest +
		similarText(a[:posA], b[:posB]) +
		similarText(a[posA+longest:], b[posB+longest:])
}

// similarityPercent returns similarText as a percentage of the combined length.
// Two empty strings are identical.
func similarityPercent(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 100
	}
	return float64(similarText(ra, rb)*2) * 100 / float64(len(ra)+len(rb))
}
