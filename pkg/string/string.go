// Package string holds small string helpers shared by handlers and
// validation.
package string

import (
	"strings"
	"unicode"
)

// TrimStrings trims the pointed-at strings in place. Handlers run request
// fields through this before validation so " NSN001 " and "NSN001" behave
// the same.
func TrimStrings(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}

// ToSnakeCase converts a Go field name to its json-tag form, e.g.
// "ImprovementNote" to "improvement_note".
func ToSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
