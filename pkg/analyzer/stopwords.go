package analyzer

// swedishStopwordList enumerates the fixed ~50-entry Swedish stopword set.
// This is hand-curated lexical data, not something a general-purpose library
// provides for Swedish; adding or removing an entry is a deliberate change
// to this list, not a runtime config knob.
var swedishStopwordList = []string{
	"och", "i", "att", "det", "som", "en", "på", "är", "av", "för",
	"med", "till", "den", "har", "de", "inte", "om", "ett", "men", "var",
	"jag", "sig", "så", "vi", "från", "eller", "kan", "man", "nu", "hade",
	"ska", "skulle", "vid", "här", "också", "inget", "fram", "både", "in", "ut",
	"över", "under", "efter", "innan", "mellan", "genom", "blivit", "blir", "kommer", "detta",
	"denna", "dessa", "vilken", "vilket",
}

var swedishStopwords = buildStopwordSet()

func buildStopwordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(swedishStopwordList))
	for _, w := range swedishStopwordList {
		set[w] = struct{}{}
	}

	return set
}
