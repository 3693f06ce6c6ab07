package harness

import "strings"

// Normalize strips trailing whitespace from each line and drops
// trailing blank lines. Pass/fail comparison happens on the normalized
// forms so formatting noise never fails a correct answer.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// OutputsMatch is the sole pass/fail criterion: exact equality of the
// normalized outputs.
func OutputsMatch(actual, expected string) bool {
	return Normalize(actual) == Normalize(expected)
}
