package ranker

import "github.com/larsson/sokmotor/pkg/index"

const (
	pagerankIterations = 20
	pagerankDamping    = 0.85
)

// PageRank computes a damped power-iteration pagerank over the in-corpus
// link graph, returning a score per PageID normalized so the maximum score
// across the corpus is 1 (min-max against the implicit floor of 0).
type PageRank struct {
	scores map[index.PageID]float64
}

// ComputePageRank runs pagerankIterations of power iteration with damping
// pagerankDamping over links (outbound adjacency keyed by page id),
// restricted to the given universe of page ids (pages with no recorded
// outbound link are treated as linking to nothing, distributing their mass
// evenly as a dangling-node correction).
func ComputePageRank(pageIDs []index.PageID, links map[index.PageID][]index.PageID) *PageRank {
	n := len(pageIDs)
	if n == 0 {
		return &PageRank{scores: map[index.PageID]float64{}}
	}

	idxOf := make(map[index.PageID]int, n)
	for i, id := range pageIDs {
		idxOf[id] = i
	}

	outDegree := make([]int, n)
	adjacency := make([][]int, n)

	for id, out := range links {
		from, ok := idxOf[id]
		if !ok {
			continue
		}

		for _, to := range out {
			toIdx, ok := idxOf[to]
			if !ok {
				continue
			}

			adjacency[from] = append(adjacency[from], toIdx)
		}

		outDegree[from] = len(adjacency[from])
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	base := (1 - pagerankDamping) / float64(n)

	for iter := 0; iter < pagerankIterations; iter++ {
		next := make([]float64, n)

		var danglingMass float64

		for i, r := range rank {
			if outDegree[i] == 0 {
				danglingMass += r
			}
		}

		danglingShare := pagerankDamping * danglingMass / float64(n)

		for i := range next {
			next[i] = base + danglingShare
		}

		for i, targets := range adjacency {
			if outDegree[i] == 0 {
				continue
			}

			share := pagerankDamping * rank[i] / float64(outDegree[i])

			for _, t := range targets {
				next[t] += share
			}
		}

		rank = next
	}

	maxRank := 0.0
	for _, r := range rank {
		if r > maxRank {
			maxRank = r
		}
	}

	scores := make(map[index.PageID]float64, n)

	for i, id := range pageIDs {
		if maxRank > 0 {
			scores[id] = rank[i] / maxRank
		} else {
			scores[id] = 0
		}
	}

	return &PageRank{scores: scores}
}

// Score returns the normalized pagerank score for id, 0 if unknown.
func (p *PageRank) Score(id index.PageID) float64 {
	return p.scores[id]
}
