// Package slug derives URL slugs from free text.
package slug

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug Make will return.
const MaxLength = 50

var (
	separatorRuns = regexp.MustCompile(`[^a-z0-9]+`)
	validSlug     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Make converts text into a lowercase slug made of [a-z0-9] runs joined by
// single hyphens, truncated to MaxLength.
//
// Compatibility forms are folded first (full-width letters, ligatures) and the
// result is transliterated to ASCII, so "Ｃafé Ünïcode" becomes "cafe-unicode".
func Make(text string) string {
	s := unidecode.Unidecode(norm.NFKC.String(text))
	s = strings.ToLower(s)
	s = separatorRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	// s is pure ASCII here, byte slicing is safe
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}

	return s
}

// Valid reports whether s is a non-empty slug that Make could have produced.
func Valid(s string) bool {
	return len(s) <= MaxLength && validSlug.MatchString(s)
}
