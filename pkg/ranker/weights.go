package ranker

import "github.com/larsson/sokmotor/pkg/sokerr"

// Weights holds the relative importance of each ranking signal. All
// populated weights must sum to 1 after any override; Normalize enforces
// that by rescaling.
type Weights struct {
	Relevance float64
	Authority float64
	PageRank  float64
	Recency   float64
	Density   float64
	Link      float64
	Regional  float64
	Semantic  float64
}

// DefaultWeights matches the spec's default component table; Semantic is
// zero by default (redistributed from Relevance only when a semantic score
// is supplied).
var DefaultWeights = Weights{
	Relevance: 0.25,
	Authority: 0.15,
	PageRank:  0.20,
	Recency:   0.15,
	Density:   0.10,
	Link:      0.10,
	Regional:  0.05,
}

// semanticWeight is redistributed from Relevance when a semantic score is
// available, per the spec's "0.15 redistributed from relevance" rule.
const semanticWeight = 0.15

func (w Weights) sum() float64 {
	return w.Relevance + w.Authority + w.PageRank + w.Recency + w.Density + w.Link + w.Regional + w.Semantic
}

// withSemantic returns a copy of w with semanticWeight moved from Relevance
// into Semantic, for use when a semantic score is present.
func (w Weights) withSemantic() Weights {
	w.Semantic = semanticWeight
	w.Relevance -= semanticWeight

	if w.Relevance < 0 {
		w.Relevance = 0
	}

	return w
}

// Normalize rescales w so its populated components sum to 1. It rejects an
// all-zero weight vector as invalid.
func Normalize(w Weights) (Weights, error) {
	total := w.sum()
	if total == 0 {
		return Weights{}, sokerr.QueryInvalid("ranking weights cannot all be zero")
	}

	if floatsEqual(total, 1) {
		return w, nil
	}

	return Weights{
		Relevance: w.Relevance / total,
		Authority: w.Authority / total,
		PageRank:  w.PageRank / total,
		Recency:   w.Recency / total,
		Density:   w.Density / total,
		Link:      w.Link / total,
		Regional:  w.Regional / total,
		Semantic:  w.Semantic / total,
	}, nil
}

const epsilon = 1e-9

func floatsEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}

	return d < epsilon
}
