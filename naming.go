package sqlschema

import (
	"strings"
	"unicode"
)

// FieldNamer derives a field name from a catalog column name.
type FieldNamer func(column string) string

// SnakeCase converts a column name to snake_case: "userId" and "UserID"
// become "user_id", "Created At" becomes "created_at". Names already in
// snake_case are returned unchanged.
func SnakeCase(s string) string {
	runes := []rune(strings.TrimSpace(s))

	var b strings.Builder

	sep := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == ' ' || r == '-' || r == '.':
			sep()
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}

			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

// Verbatim keeps column names as they are.
func Verbatim(column string) string {
	return column
}
