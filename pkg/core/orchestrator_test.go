package core

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsson/sokmotor/pkg/analytics"
	"github.com/larsson/sokmotor/pkg/analyzer"
	"github.com/larsson/sokmotor/pkg/cache"
	"github.com/larsson/sokmotor/pkg/domain"
	"github.com/larsson/sokmotor/pkg/index"
	"github.com/larsson/sokmotor/pkg/queryparser"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *index.Index) {
	t.Helper()

	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	a := analyzer.New()
	idx := index.New(store, a)
	reg, err := domain.New("")
	require.NoError(t, err)

	o := New(reg, a, queryparser.New(0), idx, cache.New(100, time.Hour), analytics.New(0), 0)

	return o, idx
}

func TestSearch_ReturnsMatchingPage(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	_, err := idx.Upsert(index.Document{
		URL:         "https://svt.se/nyheter/vader",
		Host:        "svt.se",
		Title:       "Vädret i Sverige idag",
		Description: "Senaste prognosen för vädret.",
		Body:        "Det blir soligt väder i hela landet under veckan.",
		FetchedAt:   time.Now(),
	})
	require.NoError(t, err)

	set, err := o.Search("väder", 10, 0, StrategyHybrid, time.Now())
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "https://svt.se/nyheter/vader", set.Results[0].URL)
	assert.NotEmpty(t, set.Results[0].Snippet)
	assert.False(t, set.FromCache)
}

func TestSearch_SecondCallServedFromCache(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	_, err := idx.Upsert(index.Document{
		URL:       "https://dn.se/a",
		Host:      "dn.se",
		Title:     "Nyheter om regeringen",
		Body:      "Regeringen meddelade idag ett nytt beslut om budgeten.",
		FetchedAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = o.Search("regeringen", 10, 0, StrategyHybrid, time.Now())
	require.NoError(t, err)

	second, err := o.Search("regeringen", 10, 0, StrategyHybrid, time.Now())
	require.NoError(t, err)
	assert.True(t, second.FromCache)
}

func TestSearch_ExcludedTermFiltersPage(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	_, err := idx.Upsert(index.Document{
		URL:       "https://svt.se/a",
		Host:      "svt.se",
		Title:     "Fotboll och sport",
		Body:      "Dagens match i fotboll slutade oavgjort.",
		FetchedAt: time.Now(),
	})
	require.NoError(t, err)

	set, err := o.Search("sport -fotboll", 10, 0, StrategyHybrid, time.Now())
	require.NoError(t, err)
	assert.Empty(t, set.Results)
}

func TestSearch_DomainFilterRestrictsResults(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	_, err := idx.Upsert(index.Document{
		URL:       "https://svt.se/a",
		Host:      "svt.se",
		Title:     "Sportnyheter",
		Body:      "Sport och match idag.",
		FetchedAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = idx.Upsert(index.Document{
		URL:       "https://dn.se/a",
		Host:      "dn.se",
		Title:     "Sportnyheter",
		Body:      "Sport och match idag.",
		FetchedAt: time.Now(),
	})
	require.NoError(t, err)

	set, err := o.Search("sport site:dn.se", 10, 0, StrategyHybrid, time.Now())
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "dn.se", set.Results[0].Domain)
}

func TestSearch_PaginationClampsLimit(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	for i := 0; i < 3; i++ {
		_, err := idx.Upsert(index.Document{
			URL:       "https://svt.se/a" + string(rune('0'+i)),
			Host:      "svt.se",
			Title:     "Sportnyheter",
			Body:      "Sport och match idag i Sverige.",
			FetchedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	set, err := o.Search("sport", 2, 0, StrategyHybrid, time.Now())
	require.NoError(t, err)
	assert.Len(t, set.Results, 2)
	assert.Equal(t, 3, set.TotalResults)
	assert.True(t, set.HasMore)

	rest, err := o.Search("sport", 2, 2, StrategyHybrid, time.Now())
	require.NoError(t, err)
	assert.Len(t, rest.Results, 1)
	assert.False(t, rest.HasMore)
}

func TestSuggestions_RequiresMinimumDocFrequency(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	_, err := idx.Upsert(index.Document{URL: "https://svt.se/a", Host: "svt.se", Body: "stockholm"})
	require.NoError(t, err)

	out, err := o.Suggestions("stock", 10)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = idx.Upsert(index.Document{URL: "https://svt.se/b", Host: "svt.se", Body: "stockholm"})
	require.NoError(t, err)

	out, err = o.Suggestions("stock", 10)
	require.NoError(t, err)
	assert.Contains(t, out, "stockholm")
}

func TestRelated_ReturnsDistinctiveTerms(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	id, err := idx.Upsert(index.Document{
		URL:   "https://smhi.se/a",
		Host:  "smhi.se",
		Title: "Vädret i Stockholm",
		Body:  "Prognosen visar soligt väder i Stockholm imorgon.",
	})
	require.NoError(t, err)

	out, err := o.Related(id, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRefreshPageRank_NoError(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	_, err := idx.Upsert(index.Document{URL: "https://svt.se/a", Host: "svt.se", Body: "nyheter"})
	require.NoError(t, err)

	require.NoError(t, o.RefreshPageRank())
}

func TestSearch_InvalidQueryReturnsDiagnosticNotError(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	set, err := o.Search("", 10, 0, StrategyHybrid, time.Now())
	require.NoError(t, err)
	assert.True(t, set.Invalid)
	assert.NotEmpty(t, set.Diagnostic)
	assert.Empty(t, set.Results)
}

func TestSearch_NoMatchesIsNotInvalid(t *testing.T) {
	o, idx := newTestOrchestrator(t)

	_, err := idx.Upsert(index.Document{URL: "https://svt.se/a", Host: "svt.se", Body: "nyheter idag"})
	require.NoError(t, err)

	set, err := o.Search("obefintligtsokord", 10, 0, StrategyHybrid, time.Now())
	require.NoError(t, err)
	assert.False(t, set.Invalid)
	assert.Empty(t, set.Results)
}
