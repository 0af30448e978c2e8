package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lower lower-cases s with Unicode rules. Every case-insensitive search and
// match goes through it so that all comparisons agree. A Caser is stateful,
// so one is built per call.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// ContainsLower reports whether needle occurs in s, comparing lower-cased text.
// An empty needle matches everything.
func ContainsLower(s, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(Lower(s), Lower(needle))
}
