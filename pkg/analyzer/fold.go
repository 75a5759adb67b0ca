package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticFolder decomposes accented runes (NFD) and strips combining marks,
// producing an ASCII-approximate form. It is built once and reused; Fold
// never mutates indexed text, it only serves approximate matching.
var diacriticFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold produces a diacritic-folded form of text for approximate matching
// only. It is intentionally never used to build index terms: "ö" must
// remain "ö" in the inverted index, per §4.2.
func Fold(text string) string {
	folded, _, err := transform.String(diacriticFolder, text)
	if err != nil {
		return strings.ToLower(text)
	}

	return strings.ToLower(folded)
}
