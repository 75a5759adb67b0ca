package analyzer

import "strings"

// Intent is a coarse semantic label inferred from question-frame patterns.
type Intent string

const (
	IntentNone       Intent = ""
	IntentPerson     Intent = "person"
	IntentDefinition Intent = "definition"
	IntentLocation   Intent = "location"
	IntentTemporal   Intent = "temporal"
	IntentHowTo      Intent = "howto"
	IntentNews       Intent = "news"
	IntentRecent     Intent = "recent"
	IntentTrend      Intent = "trend"
)

// intentFrame pairs a question-frame prefix (or contained keyword) with the
// intent it signals.
type intentFrame struct {
	pattern  string
	intent   Intent
	contains bool // match anywhere in the query, not just as a prefix
}

// intentFrames is ordered by specificity, most specific first: the five
// interrogative question frames are checked before the trailing topical
// keyword frames, so "vad är vädret i stockholm" resolves to "definition",
// not "recent", even though it also contains "väder".
var intentFrames = []intentFrame{
	{pattern: "vem är", intent: IntentPerson},
	{pattern: "vad är", intent: IntentDefinition},
	{pattern: "var ligger", intent: IntentLocation},
	{pattern: "var finns", intent: IntentLocation},
	{pattern: "när", intent: IntentTemporal},
	{pattern: "hur", intent: IntentHowTo},
	{pattern: "väder", intent: IntentRecent, contains: true},
	{pattern: "nyheter", intent: IntentNews, contains: true},
	{pattern: "senaste", intent: IntentRecent, contains: true},
	{pattern: "trend", intent: IntentTrend, contains: true},
}

// ClassifyIntent matches query against the ordered list of question frames
// and returns the first (most specific) match. Matching is deterministic:
// the same query always yields the same intent.
func (a *Analyzer) ClassifyIntent(query string) Intent {
	norm := normalize(query)

	for _, f := range a.intents {
		if f.contains {
			if strings.Contains(norm, f.pattern) {
				return f.intent
			}

			continue
		}

		if strings.HasPrefix(norm, f.pattern) {
			return f.intent
		}
	}

	return IntentNone
}
