package index

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/larsson/sokmotor/pkg/analyzer"
)

// TestScorer_WorkedExample reproduces the concrete BM25 example: a corpus of
// two documents, a term appearing in one of them with tf=3 in a 100-token
// document whose average length is also 100. Expected contribution is
// ln(2)*(3*2.5)/(3+1.5*1) = ln(2)*7.5/4.5 ~= 1.155.
func TestScorer_WorkedExample(t *testing.T) {
	idx := New(openTestStore(t), analyzer.New())

	idx.store.mu.Lock()
	idx.store.stats = Stats{N: 2, AvgDocLen: 100, TermCount: 1}
	idx.store.mu.Unlock()

	err := idx.store.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal([]Posting{{PageID: 1, TF: 3, InBody: true}})
		if err != nil {
			return err
		}

		return tx.Bucket(bucketPostings).Put([]byte("term"), data)
	})
	require.NoError(t, err)

	scorer := NewScorer(idx, DefaultBM25Params)

	postings, err := idx.GetPostings("term")
	require.NoError(t, err)
	require.Len(t, postings, 1)

	score, err := scorer.TermScore("term", postings[0], 100)
	require.NoError(t, err)
	assert.InDelta(t, 1.155, score, 0.01)
}

func TestTermScore_UsesDefaultsWhenZeroValue(t *testing.T) {
	idx := New(openTestStore(t), analyzer.New())
	scorer := NewScorer(idx, BM25Params{})

	assert.Equal(t, DefaultBM25Params, scorer.params)
}
