package middleware

import (
	"net/http"
	"strings"

	"github.com/hmoreau/petvision/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

const tokenPrefixLen = 8

// Auth gates mutating routes behind a single deployment token.
type Auth struct {
	tokenHash []byte
}

// NewAuth creates an Auth middleware around the configured bcrypt hash.
func NewAuth(tokenHash string) *Auth {
	return &Auth{tokenHash: []byte(tokenHash)}
}

// Authenticate validates the Bearer token against the configured hash
// and stashes the token prefix for the rate limiter.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken := extractBearerToken(r)
		if rawToken == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawToken) < tokenPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid token format", nil)
			return
		}

		if bcrypt.CompareHashAndPassword(a.tokenHash, []byte(rawToken)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid token", nil)
			return
		}

		r = r.WithContext(setTokenPrefix(r.Context(), rawToken[:tokenPrefixLen]))
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
