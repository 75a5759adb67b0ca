package analyzer

import "strings"

// minStemLength is the shortest stem Stem will produce; it also means words
// of length <= 3 are never touched.
const minStemLength = 3

// stemSuffixes lists suffixes to strip, longest first so a word like
// "tidningarnas" loses "-arnas" in one pass rather than "-as" followed by
// a leftover "-arn". Order within a tier does not matter since at most one
// suffix can match a given word (they are mutually exclusive in ending).
var stemSuffixes = []string{
	"arnas", "ernas", "ornas",
	"arna", "erna", "orna",
	"ade", "are", "ast",
	"ar", "er", "or", "en", "et", "na",
	"s",
}

// Stem applies light Swedish suffix-stripping: plural, definite, past-tense
// (-ade), comparative/adjective forms, and a trailing genitive -s. Words of
// length <= 3 are returned unchanged. Stem is idempotent: it keeps
// stripping until the word no longer ends in a listed suffix that leaves a
// long enough stem (or is at most 3 letters long), so running it again on
// its own result changes nothing.
func Stem(word string) string {
	runes := []rune(word)
	if len(runes) <= minTokenLength+1 { // length <= 3
		return word
	}

	for _, suf := range stemSuffixes {
		if !strings.HasSuffix(word, suf) {
			continue
		}

		stem := word[:len(word)-len(suf)]
		if len([]rune(stem)) >= minStemLength {
			return Stem(stem)
		}
	}

	return word
}
