package students

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultLocalPart = "estudiante"

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// EmailBase builds the local part of an institutional address from a full
// name: "first.last" for two or more words, the single word otherwise.
// Accents are stripped and only [a-z0-9.] is kept.
func EmailBase(fullName string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(fullName)))
	var base string
	switch len(parts) {
	case 0:
		return defaultLocalPart
	case 1:
		base = parts[0]
	default:
		base = parts[0] + "." + parts[len(parts)-1]
	}

	if out, _, err := transform.String(stripMarks, base); err == nil {
		base = out
	}
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, base)
	if base == "" || strings.Trim(base, ".") == "" {
		return defaultLocalPart
	}
	return base
}

// InstitutionalEmail returns the address for attempt n: the bare base for
// n == 0 and base+n afterwards.
func InstitutionalEmail(base, domain string, n int) string {
	if n == 0 {
		return base + "@" + domain
	}
	return base + strconv.Itoa(n) + "@" + domain
}
