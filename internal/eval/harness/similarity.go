package harness

// similarityCap bounds the quadratic edit-distance computation. Longer
// outputs are truncated before measuring; the figure is diagnostic
// only, so the approximation is acceptable.
const similarityCap = 4096

// Similarity returns a [0,1] resemblance score between two outputs,
// derived from Levenshtein edit distance on the normalized forms. It
// feeds diagnostics only and never influences pass/fail.
func Similarity(actual, expected string) float64 {
	a := Normalize(actual)
	b := Normalize(expected)
	if len(a) > similarityCap {
		a = a[:similarityCap]
	}
	if len(b) > similarityCap {
		b = b[:similarityCap]
	}
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with a two-row rolling table.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
