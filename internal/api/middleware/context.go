package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	tokenPrefixKey contextKey = "token_prefix"
)

// RequestID tags every request with a correlation ID. An inbound
// X-Request-ID header is honoured so upstream proxies can trace calls.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))
		next.ServeHTTP(w, r)
	})
}

func GetRequestID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(requestIDKey).(string)
	return id, ok
}

func setTokenPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, tokenPrefixKey, prefix)
}

func getTokenPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(tokenPrefixKey).(string)
	return prefix, ok
}

// ExportedTokenPrefixKey returns the context key for token_prefix (for testing).
func ExportedTokenPrefixKey() contextKey {
	return tokenPrefixKey
}
