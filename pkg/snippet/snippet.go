// Package snippet builds short, highlighted excerpts of a page's body
// around the earliest occurrence of a query term, for display alongside
// search results.
package snippet

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// MaxLength is the default snippet length cap.
const MaxLength = 150

// fragmentPolicy allows only <mark> tags through, so highlight markers
// render as real HTML while anything else in the source text is stripped.
var fragmentPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("mark")

	return p
}()

// Generate locates the earliest occurrence of any term in body
// (case-insensitive), extracts a window of at most maxLength characters
// ending at a word boundary, and wraps matched terms in <mark>. If no term
// occurs in body, it falls back to the leading window of fallback (title or
// description).
func Generate(body, fallback string, terms []string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = MaxLength
	}

	window, found := firstMatchWindow(body, terms, maxLength)
	if !found {
		window = leadingWindow(fallback, maxLength)
	}

	return fragmentPolicy.Sanitize(highlight(window, terms))
}

func firstMatchWindow(body string, terms []string, maxLength int) (string, bool) {
	lower := strings.ToLower(body)

	earliest := -1

	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}

		if idx := strings.Index(lower, term); idx != -1 && (earliest == -1 || idx < earliest) {
			earliest = idx
		}
	}

	if earliest == -1 {
		return "", false
	}

	start := earliest - maxLength/4
	if start < 0 {
		start = 0
	}

	end := start + maxLength
	if end > len(body) {
		end = len(body)
	}

	return trimToWordBoundary(body[start:end]), true
}

func leadingWindow(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}

	return trimToWordBoundary(text[:maxLength])
}

func trimToWordBoundary(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return strings.TrimSpace(string(runes[:i]))
		}
	}

	return s
}

func highlight(text string, terms []string) string {
	lower := strings.ToLower(text)

	type span struct{ start, end int }

	var spans []span

	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}

		for idx := 0; ; {
			pos := strings.Index(lower[idx:], term)
			if pos == -1 {
				break
			}

			start := idx + pos
			end := start + len(term)
			spans = append(spans, span{start, end})
			idx = end
		}
	}

	if len(spans) == 0 {
		return text
	}

	spans = mergeSpans(spans)

	var b strings.Builder

	cursor := 0

	for _, s := range spans {
		b.WriteString(text[cursor:s.start])
		b.WriteString("<mark>")
		b.WriteString(text[s.start:s.end])
		b.WriteString("</mark>")
		cursor = s.end
	}

	b.WriteString(text[cursor:])

	return b.String()
}

func mergeSpans(spans []struct{ start, end int }) []struct{ start, end int } {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j-1].start > spans[j].start; j-- {
			spans[j-1], spans[j] = spans[j], spans[j-1]
		}
	}

	merged := spans[:0]

	for _, s := range spans {
		if len(merged) > 0 && s.start <= merged[len(merged)-1].end {
			if s.end > merged[len(merged)-1].end {
				merged[len(merged)-1].end = s.end
			}

			continue
		}

		merged = append(merged, s)
	}

	return merged
}
