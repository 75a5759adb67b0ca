package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "index.db")
	store, err := Open(path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestOpen_CreatesBuckets(t *testing.T) {
	store := openTestStore(t)
	assert.Equal(t, Stats{}, store.Stats())
}

func TestStore_GetPage_Missing(t *testing.T) {
	store := openTestStore(t)

	p, err := store.GetPage(999)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStore_GetPostings_Missing(t *testing.T) {
	store := openTestStore(t)

	postings, err := store.GetPostings("nyheter")
	require.NoError(t, err)
	assert.Empty(t, postings)
}

func TestStore_Sweep_NoCorruption(t *testing.T) {
	store := openTestStore(t)

	dropped, err := store.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
}
