// Package queryparser turns free-text search input into a structured
// SearchQuery: terms, quoted phrases, exclusions, and site/date/language
// filters, classified into a query type for downstream ranking decisions.
package queryparser

import (
	"sort"
	"strings"
	"time"

	"github.com/larsson/sokmotor/pkg/sokerr"
)

// Type classifies a parsed query for the orchestrator and ranker.
type Type string

const (
	TypeSimple   Type = "SIMPLE"
	TypePhrase   Type = "PHRASE"
	TypeBoolean  Type = "BOOLEAN"
	TypeAdvanced Type = "ADVANCED"
	TypeMixed    Type = "MIXED"
)

// DefaultMaxTerms is the default cap on terms+phrases per query.
const DefaultMaxTerms = 32

const dateLayout = "2006-01-02"

// SearchQuery is the structured result of parsing a raw query string.
type SearchQuery struct {
	DateFrom     time.Time
	DateTo       time.Time
	Raw          string
	Normalized   string
	Type         Type
	DomainFilter string
	LangFilter   string
	SortKey      string
	Terms        []string
	Phrases      []string
	ExcludeTerms []string
	Limit        int
	Offset       int
}

// HasDateFrom reports whether a from: filter was present.
func (q SearchQuery) HasDateFrom() bool { return !q.DateFrom.IsZero() }

// HasDateTo reports whether a to: filter was present.
func (q SearchQuery) HasDateTo() bool { return !q.DateTo.IsZero() }

func (q SearchQuery) hasFilters() bool {
	return q.DomainFilter != "" || q.LangFilter != "" || q.HasDateFrom() || q.HasDateTo()
}

var noiseWords = map[string]struct{}{
	"and": {},
	"or":  {},
}

// Parser parses raw query strings into SearchQuery values.
type Parser struct {
	maxTerms int
}

// New builds a Parser with maxTerms as the terms+phrases cap (DefaultMaxTerms
// if <= 0).
func New(maxTerms int) *Parser {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}

	return &Parser{maxTerms: maxTerms}
}

// Parse applies the extraction passes in order - filters, phrases,
// exclusions, then remaining single terms - and classifies the result.
func (p *Parser) Parse(raw string) (*SearchQuery, error) {
	q := &SearchQuery{Raw: raw}

	for _, tok := range tokenize(raw) {
		switch {
		case isQuotedPhrase(tok):
			phrase := normalizeText(strings.Trim(tok, `"`))
			if len(phrase) >= 2 {
				q.Phrases = append(q.Phrases, phrase)
			}
		case consumeFilter(tok, q):
			// handled inline
		case strings.HasPrefix(tok, "not:") && len(tok) > 4:
			q.ExcludeTerms = append(q.ExcludeTerms, normalizeText(tok[4:]))
		case strings.HasPrefix(tok, "-") && len(tok) > 1:
			q.ExcludeTerms = append(q.ExcludeTerms, normalizeText(tok[1:]))
		case isNoiseWord(tok):
			// dropped: inclusive-AND semantics
		case isGenericKeyValue(tok):
			// unrecognized key:value / key=value - not a search term
		default:
			term := normalizeText(tok)
			if term != "" {
				q.Terms = append(q.Terms, term)
			}
		}
	}

	q.Normalized = normalizeText(raw)
	q.Type = classify(q)

	if err := validate(q, p.maxTerms); err != nil {
		return nil, err
	}

	return q, nil
}

// tokenize splits on whitespace while keeping double-quoted phrases intact
// as a single token.
func tokenize(raw string) []string {
	var tokens []string

	var b strings.Builder

	inQuotes := false

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case r == ' ' && !inQuotes:
			flush()
		default:
			b.WriteRune(r)
		}
	}

	flush()

	return tokens
}

func isQuotedPhrase(tok string) bool {
	return strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) && len(tok) > 1
}

func isNoiseWord(tok string) bool {
	_, ok := noiseWords[strings.ToLower(tok)]
	return ok
}

// isGenericKeyValue recognizes key=value / unknown key:value syntax (e.g.
// limit=5) that should be silently dropped rather than treated as a search
// term, reserving that syntax space for future filters.
func isGenericKeyValue(tok string) bool {
	idx := strings.IndexAny(tok, ":=")
	if idx <= 0 || idx == len(tok)-1 {
		return false
	}

	return true
}

var filterPrefixes = []string{"site:", "domain:", "from:", "to:", "lang:"}

func consumeFilter(tok string, q *SearchQuery) bool {
	lower := strings.ToLower(tok)

	switch {
	case strings.HasPrefix(lower, "site:"):
		q.DomainFilter = strings.TrimSpace(tok[len("site:"):])
		return true
	case strings.HasPrefix(lower, "domain:"):
		q.DomainFilter = strings.TrimSpace(tok[len("domain:"):])
		return true
	case strings.HasPrefix(lower, "lang:"):
		q.LangFilter = strings.ToLower(strings.TrimSpace(tok[len("lang:"):]))
		return true
	case strings.HasPrefix(lower, "from:"):
		if t, err := time.Parse(dateLayout, tok[len("from:"):]); err == nil {
			q.DateFrom = t
		}

		return true
	case strings.HasPrefix(lower, "to:"):
		if t, err := time.Parse(dateLayout, tok[len("to:"):]); err == nil {
			q.DateTo = t
		}

		return true
	default:
		return false
	}
}

func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, `"`)

	var b strings.Builder

	lastSpace := false

	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			if !lastSpace {
				b.WriteRune(' ')
			}

			lastSpace = true
		case isQueryRune(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

func isQueryRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == 'å' || r == 'ä' || r == 'ö' || r == 'é' || r == 'ü':
		return true
	case r == '-' || r == '_':
		return true
	default:
		return false
	}
}

func classify(q *SearchQuery) Type {
	switch {
	case q.hasFilters():
		return TypeAdvanced
	case len(q.ExcludeTerms) > 0:
		return TypeBoolean
	case len(q.Phrases) > 0 && len(q.Terms) == 0 && len(q.ExcludeTerms) == 0:
		return TypePhrase
	case len(q.Terms) == 1 && len(q.Phrases) == 0 && len(q.ExcludeTerms) == 0:
		return TypeSimple
	default:
		return TypeMixed
	}
}

func validate(q *SearchQuery, maxTerms int) error {
	if len(q.Terms) == 0 && len(q.Phrases) == 0 {
		return sokerr.QueryInvalid("query must contain at least one term or phrase")
	}

	if len(q.Terms)+len(q.Phrases) > maxTerms {
		return sokerr.QueryInvalid("query exceeds the maximum number of terms")
	}

	return nil
}

// SortedExcludeTerms returns a sorted copy of the exclusion list, useful for
// deterministic logging and tests.
func (q SearchQuery) SortedExcludeTerms() []string {
	out := append([]string(nil), q.ExcludeTerms...)
	sort.Strings(out)

	return out
}
