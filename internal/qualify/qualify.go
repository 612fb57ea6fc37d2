// Package qualify rewrites bare table references in SQL text into fully
// qualified database.schema.table form. SQL is treated as opaque text; the
// only transformation is word-boundary identifier substitution.
package qualify

import (
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Table replaces every case-insensitive whole-word occurrence of table in
// sqlText with database.schema.table. Substrings embedded in longer
// identifiers are left untouched. The replacement preserves the table name
// exactly as passed, so callers control its case.
func Table(sqlText, table, database, schema string) string {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(table) + `\b`)
	qualified := fmt.Sprintf("%s.%s.%s", database, schema, table)
	return re.ReplaceAllLiteralString(sqlText, qualified)
}

// ValidIdentifier reports whether name is a plain warehouse identifier.
// Anything interpolated into a statement with write effect (the clone
// target in particular) must pass this check first.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
