package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDHeader is the header a correlation ID is read from, if the
// caller already has one, and echoed back under on every response.
const requestIDHeader = "X-Request-ID"

// NewReqID returns a middleware that assigns each request a correlation ID
// (reusing one supplied in the X-Request-ID header, or minting a fresh
// uuid.NewString() otherwise), stores it in the request context, and echoes
// it back in the response header.
func NewReqID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, id)

			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID returns the correlation ID stashed in ctx by NewReqID, or "" if
// none is present.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
