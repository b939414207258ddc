package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header carrying the correlation ID between client, proxy, and server.
const requestIDHeader = "X-Request-ID"

// Inbound IDs longer than this are discarded so a client cannot push
// arbitrary blobs into logs and response headers.
const maxRequestIDLen = 64

type requestIDKey struct{}

// RequestID tags each request with a correlation ID. A reasonable inbound
// X-Request-ID survives so IDs stay stable across proxy hops; a missing,
// blank, or oversized one is replaced with a fresh UUID. The ID is echoed on
// the response and stored in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the correlation ID, or "" when the request did
// not pass through RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
