// Package analyzer implements the Swedish-aware text analysis chain:
// normalize, tokenize, stopword filter, light stemming, compound splitting,
// and synonym expansion.
package analyzer

import (
	"strings"
	"unicode"
)

// TokenType classifies a token for downstream field weighting; it is a side
// datum of tokenization, not used to reject or accept tokens.
type TokenType int

const (
	TokenWord TokenType = iota
	TokenNumber
	TokenAlphaNumeric
)

// Token is a single analyzed unit of text.
type Token struct {
	Text string
	Type TokenType
}

// Analyzer bundles the fixed, immutable lexical data (stopwords, synonym
// clusters, intent frames) used by the analysis chain.
type Analyzer struct {
	stopwords map[string]struct{}
	synonyms  map[string][]string
	intents   []intentFrame
}

// New builds an Analyzer with the built-in Swedish stopword set, synonym
// clusters, and intent frames.
func New() *Analyzer {
	return &Analyzer{
		stopwords: swedishStopwords,
		synonyms:  synonymClusters,
		intents:   intentFrames,
	}
}

// minTokenLength is the minimum run length kept by Tokenize.
const minTokenLength = 2

// normalize lowercases, collapses whitespace and strips control characters.
// It preserves å, ä, ö in composed form.
func normalize(text string) string {
	var b strings.Builder

	b.Grow(len(text))

	prevSpace := false

	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}

			prevSpace = true

			continue
		}

		if unicode.IsControl(r) {
			continue
		}

		prevSpace = false

		b.WriteRune(unicode.ToLower(r))
	}

	return strings.TrimSpace(b.String())
}

// Normalize is the exported, idempotent normalization step (§8.1): lowercase,
// collapse whitespace, strip control characters, preserving å ä ö.
func Normalize(text string) string {
	return normalize(text)
}

// isIndexable reports whether r may appear within an indexable token:
// a-z, 0-9, å ä ö é ü.
func isIndexable(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == 'å' || r == 'ä' || r == 'ö' || r == 'é' || r == 'ü':
		return true
	default:
		return false
	}
}

// Tokenize splits normalized text on non-letter/digit boundaries, keeping
// runs of length >= 2 made up of the indexable alphabet.
func Tokenize(text string) []Token {
	norm := normalize(text)
	if norm == "" {
		return nil
	}

	var tokens []Token

	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}

		s := cur.String()
		if len([]rune(s)) >= minTokenLength {
			tokens = append(tokens, Token{Text: s, Type: classify(s)})
		}

		cur.Reset()
	}

	for _, r := range norm {
		if isIndexable(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}

	flush()

	return tokens
}

func classify(s string) TokenType {
	hasDigit, hasLetter := false, false

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasLetter = true
		}
	}

	switch {
	case hasDigit && hasLetter:
		return TokenAlphaNumeric
	case hasDigit:
		return TokenNumber
	default:
		return TokenWord
	}
}

// IsStopword reports whether token is a member of the fixed Swedish
// stopword set.
func (a *Analyzer) IsStopword(token string) bool {
	_, ok := a.stopwords[token]
	return ok
}

// RemoveStopwords filters stopwords out of tokens.
func (a *Analyzer) RemoveStopwords(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))

	for _, t := range tokens {
		if !a.IsStopword(t.Text) {
			out = append(out, t)
		}
	}

	return out
}

// Analyze runs the full chain (tokenize -> stopword filter -> stem ->
// compound split) over text and returns the resulting surface forms,
// without synonym expansion (callers that need expansion call Expand
// separately so the orchestrator can keep original terms ranked first).
func (a *Analyzer) Analyze(text string) []string {
	tokens := a.RemoveStopwords(Tokenize(text))

	out := make([]string, 0, len(tokens))

	for _, t := range tokens {
		stem := Stem(t.Text)
		out = append(out, stem)

		for _, part := range SplitCompound(t.Text) {
			out = append(out, part)
		}
	}

	return out
}
