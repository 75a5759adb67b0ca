package ranker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsson/sokmotor/pkg/index"
)

func TestNormalize_RescalesToSumOne(t *testing.T) {
	w, err := Normalize(Weights{Relevance: 1, Authority: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w.sum(), epsilon)
	assert.InDelta(t, 0.5, w.Relevance, epsilon)
}

func TestNormalize_RejectsAllZero(t *testing.T) {
	_, err := Normalize(Weights{})
	assert.Error(t, err)
}

func TestRank_StableTieBreakOnBM25ThenPageID(t *testing.T) {
	pageA := &index.Page{ID: 2, Host: "svt.se", FetchedAt: time.Now()}
	pageB := &index.Page{ID: 1, Host: "svt.se", FetchedAt: time.Now()}

	candidates := []Candidate{
		{Page: pageA, BM25Sum: 1},
		{Page: pageB, BM25Sum: 1},
	}

	results, err := Rank(candidates, Options{Weights: DefaultWeights})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, index.PageID(1), results[0].Page.ID)
}

func TestRank_HigherBM25RanksFirstAllElseEqual(t *testing.T) {
	high := &index.Page{ID: 1, Host: "svt.se", FetchedAt: time.Now()}
	low := &index.Page{ID: 2, Host: "svt.se", FetchedAt: time.Now()}

	candidates := []Candidate{
		{Page: low, BM25Sum: 0.1},
		{Page: high, BM25Sum: 5.0},
	}

	results, err := Rank(candidates, Options{Weights: DefaultWeights})
	require.NoError(t, err)
	assert.Equal(t, index.PageID(1), results[0].Page.ID)
}

func TestRank_SemanticRedistributesFromRelevance(t *testing.T) {
	sem := 0.9
	page := &index.Page{ID: 1, Host: "svt.se", FetchedAt: time.Now()}

	candidates := []Candidate{{Page: page, BM25Sum: 1, Semantic: &sem}}

	results, err := Rank(candidates, Options{Weights: DefaultWeights})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, results[0].Score, 0.0)
}

type fakeRegistry struct{}

func (fakeRegistry) TrustFor(host string) float64 { return 0.9 }
func (fakeRegistry) IsAllowed(host string) bool   { return host == "svt.se" }

func TestRegionalScore_SwedishTLDAndRegistry(t *testing.T) {
	page := &index.Page{Host: "svt.se", Title: "Sverige idag"}
	score := regionalScore(page, fakeRegistry{})
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestComputePageRank_NormalizesToMaxOne(t *testing.T) {
	ids := []index.PageID{1, 2, 3}
	links := map[index.PageID][]index.PageID{
		1: {2, 3},
		2: {3},
	}

	pr := ComputePageRank(ids, links)
	assert.Equal(t, 1.0, pr.Score(3))
	assert.Less(t, pr.Score(1), pr.Score(3))
}
