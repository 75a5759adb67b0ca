package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/larsson/sokmotor/pkg/analytics"
	"github.com/larsson/sokmotor/pkg/core"
	"github.com/larsson/sokmotor/pkg/index"
	"github.com/larsson/sokmotor/pkg/sokerr"
)

// healthResponse is the JSON shape of a /api/health response.
type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// healthCheck verifies the server is running and returns 200 OK.
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:        "healthy",
		Version:       a.config.Version,
		UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeError converts err to the stable {error, code, details?} shape and
// picks an HTTP status from its sokerr.Kind; unclassified errors are
// reported as 500 internal errors.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	if se, ok := sokerr.As(err); ok && se.Kind == sokerr.KindQueryInvalid {
		status = http.StatusBadRequest
	}

	writeJSON(w, r, status, sokerr.ToJSON(err))
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return n
}

// searchResponse is the JSON shape of a /api/search response.
type searchResponse struct {
	Query           string              `json:"query"`
	Diagnostic      string              `json:"diagnostic,omitempty"`
	Results         []core.RankedResult `json:"results"`
	TotalResults    int                 `json:"total_results"`
	ReturnedResults int                 `json:"returned_results"`
	ExecutionTimeMs int64               `json:"execution_time_ms"`
	FromCache       bool                `json:"from_cache"`
	HasMore         bool                `json:"has_more"`
	NextOffset      int                 `json:"next_offset"`
}

// search serves GET /api/search?q=...&limit=...&offset=...&sort=...
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	limit := queryInt(r, "limit", core.DefaultLimit)
	offset := queryInt(r, "offset", 0)
	strategy := core.Strategy(r.URL.Query().Get("sort"))

	set, err := a.svc.Search(q, limit, offset, strategy, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if set.Invalid {
		status = http.StatusBadRequest
	}

	writeJSON(w, r, status, searchResponse{
		Query:           set.Query,
		Diagnostic:      set.Diagnostic,
		Results:         set.Results,
		TotalResults:    set.TotalResults,
		ReturnedResults: set.ReturnedResults,
		ExecutionTimeMs: set.ExecutionTimeMs,
		FromCache:       set.FromCache,
		HasMore:         set.HasMore,
		NextOffset:      set.NextOffset,
	})
}

// suggestionsResponse is the JSON shape of a /api/suggestions response.
type suggestionsResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

// suggestions serves GET /api/suggestions?q=...&limit=...
func (a *API) suggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", core.DefaultLimit)

	out, err := a.svc.Suggestions(prefix, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, suggestionsResponse{Query: prefix, Suggestions: out})
}

// relatedResponse is the JSON shape of a /api/related response.
type relatedResponse struct {
	Query   string   `json:"query"`
	Related []string `json:"related"`
}

// related serves GET /api/related?id=...&limit=...
func (a *API) related(w http.ResponseWriter, r *http.Request) {
	rawID := r.URL.Query().Get("id")

	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		writeError(w, r, sokerr.QueryInvalid("id must be a positive integer page id"))
		return
	}

	limit := queryInt(r, "limit", core.DefaultLimit)

	out, err := a.svc.Related(index.PageID(id), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, relatedResponse{Query: rawID, Related: out})
}

// cacheStats serves GET /api/stats/cache.
func (a *API) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, a.svc.CacheStats())
}

// indexInfoResponse is the JSON shape of a /api/info/index response.
type indexInfoResponse struct {
	Stats     index.Stats        `json:"stats"`
	Analytics analytics.Snapshot `json:"analytics"`
}

// indexInfo serves GET /api/info/index, reporting corpus statistics
// alongside a search-usage snapshot.
func (a *API) indexInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, indexInfoResponse{
		Stats:     a.svc.IndexStats(),
		Analytics: a.svc.AnalyticsSnapshot(),
	})
}
