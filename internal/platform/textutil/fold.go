package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics removes combining marks from the input ("balanço" becomes
// "balanco"). On transform failure the original value is returned unchanged.
func FoldDiacritics(value string) string {
	folded, _, err := transform.String(diacriticStripper, value)
	if err != nil {
		return value
	}
	return folded
}

// FoldForMatch lowercases, strips diacritics, and treats hyphens and
// underscores as word separators, the normalization used for fuzzy name
// comparisons such as matching color names inside filenames. Filenames
// usually spell "Verde Musgo" as "verde-musgo" or "verde_musgo".
func FoldForMatch(value string) string {
	folded := strings.ToLower(FoldDiacritics(value))
	folded = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}
