package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyPathInstallsDefaults(t *testing.T) {
	reg, err := New("")
	require.NoError(t, err)

	assert.True(t, reg.IsAllowed("svt.se"))
	assert.True(t, reg.IsAllowed("www.svt.se"))
	assert.False(t, reg.IsAllowed("example.com"))
}

func TestNew_MissingFileFallsBackToDefaults(t *testing.T) {
	reg, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, reg.IsAllowed("dn.se"))
}

func TestNew_FlatFileForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	writeFile(t, path, `
domains:
  - host: example.se
    category: news
    trust: 0.8
    crawl_cadence: 2h
    path_hints: ["nyheter/**"]
`)

	reg, err := New(path)
	require.NoError(t, err)
	assert.True(t, reg.IsAllowed("example.se"))
	assert.InDelta(t, 0.8, reg.TrustFor("example.se"), 1e-9)
	assert.True(t, reg.MatchesHint("example.se", "nyheter/sport/a"))
	assert.False(t, reg.MatchesHint("example.se", "other/a"))
}

func TestNew_CategoryKeyedForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	writeFile(t, path, `
news:
  - host: example.se
    trust: 0.7
weather:
  - host: smhi.se
    trust: 0.9
`)

	reg, err := New(path)
	require.NoError(t, err)
	assert.True(t, reg.IsAllowed("example.se"))
	assert.True(t, reg.IsAllowed("smhi.se"))
}

func TestTrustFor_UnknownHostDefaultsToHalf(t *testing.T) {
	reg, err := New("")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, reg.TrustFor("unknown.example"), 1e-9)
}

func TestMatchesHint_NoHintsMatchesEverything(t *testing.T) {
	reg, err := New("")
	require.NoError(t, err)
	assert.True(t, reg.MatchesHint("svt.se", "anything/goes"))
}

func TestRecordError_PushesNextReadyAfterThreshold(t *testing.T) {
	reg, err := New("")
	require.NoError(t, err)

	entry, ok := reg.Resolve("svt.se")
	require.True(t, ok)

	before := entry.NextReady

	for i := 0; i < 3; i++ {
		reg.RecordError("svt.se", 3)
	}

	assert.True(t, entry.NextReady.After(before))
	assert.Equal(t, 0, entry.ErrorCount)
}

func TestRecordSuccess_ResetsErrorCount(t *testing.T) {
	reg, err := New("")
	require.NoError(t, err)

	reg.RecordError("svt.se", 100)
	reg.RecordSuccess("svt.se")

	entry, _ := reg.Resolve("svt.se")
	assert.Equal(t, 0, entry.ErrorCount)
}

func TestEndpointFor_SubstitutesQueryPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	writeFile(t, path, `
domains:
  - host: example.se
    search_endpoint: "https://example.se/search?q={query}"
`)

	reg, err := New(path)
	require.NoError(t, err)

	endpoint, ok := reg.EndpointFor("example.se", "väder")
	require.True(t, ok)
	assert.Equal(t, "https://example.se/search?q=väder", endpoint)
}

func TestSeeds_OnlyActiveEntries(t *testing.T) {
	reg, err := New("")
	require.NoError(t, err)

	seeds := reg.Seeds()
	assert.Len(t, seeds, 5)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
