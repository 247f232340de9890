package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between the MySQL and Postgres stores.
// Queries in this package are written with ? placeholders.
type Dialect interface {
	Name() string
	// Rebind rewrites ? placeholders into the driver's form.
	Rebind(query string) string
	// ClaimSQL inserts a risk_assessments row and does nothing when the
	// identifier is already claimed. Arguments follow claimColumns.
	ClaimSQL() string
	// IsDuplicate reports a unique-constraint violation.
	IsDuplicate(err error) bool
}

// RebindDollar turns ? placeholders into $1, $2, ... It does not look inside
// string literals; queries here never put ? in one.
func RebindDollar(query string) string {
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

// claimColumns is the column order of ClaimSQL.
const claimColumns = "risk_assessment_id, session_id, project_id, kind, created_by, created_at"
