package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsson/sokmotor/pkg/analyzer"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	return New(openTestStore(t), analyzer.New())
}

func TestUpsert_AssignsStableID(t *testing.T) {
	idx := newTestIndex(t)

	id1, err := idx.Upsert(Document{
		URL:   "https://svt.se/nyheter/a",
		Host:  "svt.se",
		Title: "Senaste nyheter om vädret",
		Body:  "Vädret i Sverige är soligt idag med varm temperatur.",
	})
	require.NoError(t, err)

	id2, err := idx.Upsert(Document{
		URL:   "https://svt.se/nyheter/a",
		Host:  "svt.se",
		Title: "Uppdaterad rubrik om vädret",
		Body:  "Nytt innehåll om vädret i Sverige.",
	})
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestUpsert_ReupsertDoesNotDoubleCountPostings(t *testing.T) {
	idx := newTestIndex(t)

	doc := Document{
		URL:   "https://svt.se/nyheter/a",
		Host:  "svt.se",
		Title: "väder",
		Body:  "väder väder väder",
	}

	_, err := idx.Upsert(doc)
	require.NoError(t, err)

	_, err = idx.Upsert(doc)
	require.NoError(t, err)

	postings, err := idx.GetPostings("väd")
	require.NoError(t, err)
	require.Len(t, postings, 1)
}

func TestUpsert_BuildsPostingsAcrossFields(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Upsert(Document{
		URL:         "https://svt.se/a",
		Host:        "svt.se",
		Title:       "regeringen",
		Description: "Nyheter om regeringen",
		Body:        "Idag meddelade regeringen ett beslut.",
	})
	require.NoError(t, err)

	postings, err := idx.GetPostings("regering")
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.True(t, postings[0].InTitle)
	assert.True(t, postings[0].InDesc)
	assert.True(t, postings[0].InBody)
}

func TestStats_TracksDocCountAndAvgLength(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Upsert(Document{URL: "https://svt.se/a", Host: "svt.se", Body: "ett två tre"})
	require.NoError(t, err)

	_, err = idx.Upsert(Document{URL: "https://svt.se/b", Host: "svt.se", Body: "ett två tre fyra fem"})
	require.NoError(t, err)

	stats := idx.Stats()
	assert.Equal(t, 2, stats.N)
	assert.InDelta(t, 4.0, stats.AvgDocLen, 1.0)
}

func TestIDF_RarerTermScoresHigher(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Upsert(Document{URL: "https://svt.se/a", Host: "svt.se", Body: "nyheter väder"})
	require.NoError(t, err)

	_, err = idx.Upsert(Document{URL: "https://svt.se/b", Host: "svt.se", Body: "nyheter sport"})
	require.NoError(t, err)

	idfCommon, err := idx.IDF("nyhet")
	require.NoError(t, err)

	idfRare, err := idx.IDF("väd")
	require.NoError(t, err)

	assert.Greater(t, idfRare, idfCommon)
}

func TestUpsert_FetchedAtPersisted(t *testing.T) {
	idx := newTestIndex(t)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	id, err := idx.Upsert(Document{URL: "https://smhi.se/a", Host: "smhi.se", Body: "prognos", FetchedAt: now})
	require.NoError(t, err)

	page, err := idx.GetPage(id)
	require.NoError(t, err)
	assert.True(t, now.Equal(page.FetchedAt))
}
