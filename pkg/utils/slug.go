package utils

import (
	"strings"
	"unicode"
)

// Slugify derives a lowercase kebab-case slug from a display name.
// "Semi-Sweet Chips" becomes "semi-sweet-chips". Characters outside
// [a-z0-9] collapse into single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
