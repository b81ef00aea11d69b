package schema

import (
	"strings"
	"unicode"

	"deepcopy/pkg/domain"
)

// Underscore converts a type name to its snake_case form: "LineItem" becomes
// "line_item", "HTTPRequest" becomes "http_request" and namespace separators
// "::" become "/".
func Underscore(name string) string {
	name = strings.ReplaceAll(name, "::", "/")
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range runes {
		if r == '-' || r == ' ' {
			b.WriteRune('_')
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// FieldName returns the foreign-key attribute name that refers to records of t.
func FieldName(t domain.RecordType) string {
	return Underscore(string(t)) + "_id"
}
