package linker

import (
	"unicode/utf8"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
)

// Fold produces the comparison key used by every case-insensitive tier.  It
// is the key the store persists for substring scans.
func Fold(s string) string { return kg.Fold(s) }

func runeLen(s string) int { return utf8.RuneCountInString(s) }

//Personal.AI order the ending
