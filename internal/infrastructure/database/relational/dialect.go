package relational

import (
	"strconv"
	"strings"

	"github.com/turtacn/MedKG-Intelligence/internal/domain/kg"
)

// Dialect captures the SQL differences between the supported backends.
// Queries in this package are written with "?" placeholders and rebound per
// dialect before execution.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// Rebind rewrites "?" placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// likeEscaper escapes LIKE metacharacters with a backslash; queries declare
// ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a "contains" LIKE operand over the *_folded
// columns, which hold kg.Fold of the original text.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(kg.Fold(s)) + "%"
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
