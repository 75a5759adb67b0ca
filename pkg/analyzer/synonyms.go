package analyzer

// synonymClusters maps an anchor term to related concept terms. Expansion
// is additive and read-only after startup; the original query term always
// ranks first because Expand returns it as element zero.
var synonymClusters = map[string][]string{
	"nyheter":    {"nytt", "uppdatering", "artikel"},
	"myndighet":  {"regering", "departement", "verk"},
	"handel":     {"butik", "affär", "e-handel"},
	"hälsa":      {"vård", "sjukvård", "medicin"},
	"väder":      {"klimat", "temperatur", "prognos"},
	"resa":       {"transport", "tåg", "flyg"},
	"utbildning": {"skola", "universitet", "kurs"},
	"sport":      {"match", "idrott", "tävling"},
}

// Expand returns term followed by its synonym cluster members, if any. The
// original term is always first.
func (a *Analyzer) Expand(term string) []string {
	related, ok := a.synonyms[term]
	if !ok {
		return []string{term}
	}

	out := make([]string, 0, len(related)+1)
	out = append(out, term)
	out = append(out, related...)

	return out
}
