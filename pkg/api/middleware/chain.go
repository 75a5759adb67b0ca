// Package middleware provides the small set of HTTP middlewares the search
// API wraps every route with: request-ID tagging and access logging.
package middleware

import "net/http"

// Use wraps handler with each of mws, applying them in the order given so
// the first middleware listed is the outermost one to run.
func Use(handler http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var h http.Handler = handler

	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}
