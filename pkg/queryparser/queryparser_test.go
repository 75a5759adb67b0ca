package queryparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AdvancedWithDomainAndExclusionAndDroppedKeyValue(t *testing.T) {
	p := New(0)

	q, err := p.Parse("python site:github.com -java limit=5")
	require.NoError(t, err)

	assert.Equal(t, []string{"python"}, q.Terms)
	assert.Empty(t, q.Phrases)
	assert.Equal(t, []string{"java"}, q.ExcludeTerms)
	assert.Equal(t, "github.com", q.DomainFilter)
	assert.Equal(t, TypeAdvanced, q.Type)
}

func TestParse_SimpleSingleTerm(t *testing.T) {
	p := New(0)

	q, err := p.Parse("väder")
	require.NoError(t, err)
	assert.Equal(t, TypeSimple, q.Type)
	assert.Equal(t, []string{"väder"}, q.Terms)
}

func TestParse_PhraseOnly(t *testing.T) {
	p := New(0)

	q, err := p.Parse(`"senaste nyheter"`)
	require.NoError(t, err)
	assert.Equal(t, TypePhrase, q.Type)
	assert.Equal(t, []string{"senaste nyheter"}, q.Phrases)
}

func TestParse_BooleanExclusionWithoutFilters(t *testing.T) {
	p := New(0)

	q, err := p.Parse("nyheter -sport")
	require.NoError(t, err)
	assert.Equal(t, []string{"nyheter"}, q.Terms)
	assert.Equal(t, []string{"sport"}, q.ExcludeTerms)
	assert.Equal(t, TypeBoolean, q.Type)
}

func TestParse_DropsBooleanNoiseWords(t *testing.T) {
	p := New(0)

	q, err := p.Parse("regering AND budget OR skatt")
	require.NoError(t, err)
	assert.Equal(t, []string{"regering", "budget", "skatt"}, q.Terms)
}

func TestParse_DateFilters(t *testing.T) {
	p := New(0)

	q, err := p.Parse("väder from:2026-01-01 to:2026-02-01")
	require.NoError(t, err)
	assert.True(t, q.HasDateFrom())
	assert.True(t, q.HasDateTo())
	assert.Equal(t, TypeAdvanced, q.Type)
}

func TestParse_InvalidWhenEmpty(t *testing.T) {
	p := New(0)

	_, err := p.Parse("site:svt.se -nyheter limit=5")
	assert.Error(t, err)
}

func TestParse_ExceedsMaxTerms(t *testing.T) {
	p := New(2)

	_, err := p.Parse("ett två tre")
	assert.Error(t, err)
}

func TestParse_CaseAndWhitespaceNormalized(t *testing.T) {
	p := New(0)

	q, err := p.Parse("  VÄDER   Idag  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"väder", "idag"}, q.Terms)
}
