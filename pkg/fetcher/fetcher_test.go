package fetcher

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsson/sokmotor/pkg/sokerr"
)

func TestFetch_ExtractsTitleDescriptionBodyAndLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Senaste nyheter</title>
<meta name="description" content="En sammanfattning."></head>
<body><nav>meny</nav><p>Huvudinnehåll om vädret.</p><a href="/artikel">Läs mer</a></body></html>`))
	}))
	defer srv.Close()

	f := New(0)

	doc, err := f.Fetch(t.Context(), srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, "Senaste nyheter", doc.Title)
	assert.Equal(t, "En sammanfattning.", doc.Description)
	assert.Contains(t, doc.Body, "Huvudinnehåll om vädret.")
	assert.NotContains(t, doc.Body, "meny")
	require.Len(t, doc.OutboundLinks, 1)
	assert.Contains(t, doc.OutboundLinks[0], "/artikel")
}

func TestFetch_NonOKStatusIsFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(0)

	_, err := f.Fetch(t.Context(), srv.URL+"/missing")
	require.Error(t, err)

	se, ok := sokerr.As(err)
	require.True(t, ok)
	assert.Equal(t, sokerr.KindFetchHTTP, se.Kind)
}

func TestFetch_EmptyBodyExtractsEmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(""))
	}))
	defer srv.Close()

	f := New(0)

	doc, err := f.Fetch(t.Context(), srv.URL+"/empty")
	require.NoError(t, err)
	assert.Empty(t, doc.Title)
}
