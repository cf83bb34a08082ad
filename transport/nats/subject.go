package nats

import (
	"strings"
	"unicode"
)

// DeriveSubject maps a message class name onto a NATS subject. The class
// name is split on its namespace separator ("::" or "."), each part is
// snake-cased and lower-cased, and the parts are joined with the prefix
// first. Deriving an already-derived subject leaves it unchanged.
func DeriveSubject(class, prefix string) string {
	normalized := strings.ReplaceAll(class, "::", ".")

	parts := strings.Split(normalized, ".")
	tokens := make([]string, 0, len(parts)+1)
	if prefix != "" {
		tokens = append(tokens, prefix)
	}
	for _, part := range parts {
		if part == "" {
			continue
		}
		tokens = append(tokens, snakeCase(part))
	}

	return strings.Join(tokens, ".")
}

// snakeCase inserts an underscore only at a lowercase-to-uppercase
// boundary, so acronym runs stay whole: "OrderConfirmation" becomes
// "order_confirmation" but "HTTPMessage" becomes "httpmessage".
func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	prevLower := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			if prevLower {
				b.WriteByte('_')
			}
			prevLower = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		prevLower = unicode.IsLower(r)
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
