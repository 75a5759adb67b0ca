package api

import (
	"net/http"

	"github.com/larsson/sokmotor/pkg/api/middleware"
)

// newMux registers every route behind the request-ID and access-log
// middleware chain.
func (a *API) newMux() *http.ServeMux {
	mux := http.NewServeMux()

	withReqID := middleware.NewReqID()
	withLog := middleware.NewAccessLog()

	mux.Handle("GET /api/health", middleware.Use(a.healthCheck, withReqID, withLog))
	mux.Handle("GET /api/search", middleware.Use(a.search, withReqID, withLog))
	mux.Handle("GET /api/suggestions", middleware.Use(a.suggestions, withReqID, withLog))
	mux.Handle("GET /api/related", middleware.Use(a.related, withReqID, withLog))
	mux.Handle("GET /api/stats/cache", middleware.Use(a.cacheStats, withReqID, withLog))
	mux.Handle("GET /api/info/index", middleware.Use(a.indexInfo, withReqID, withLog))

	return mux
}
