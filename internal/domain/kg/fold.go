package kg

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold produces the comparison key for case-insensitive matching: trimmed,
// NFKC-normalized, then fully case-folded.  Full-width Latin letters fold to
// their ASCII forms.  Stores persist the folded form of every searchable
// name, so substring scans and the resolver compare the same keys.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// A Caser carries state and must not be shared across goroutines.
	return cases.Fold().String(norm.NFKC.String(s))
}

//Personal.AI order the ending
