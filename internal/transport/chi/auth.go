package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// DefaultPublicPaths are served without a token so probes and scrapers need no secret.
var DefaultPublicPaths = []string{"/health", "/metrics"}

// BearerAuthMiddleware rejects requests whose Bearer token is not one of apiKeys.
// Empty keys are dropped; with none left the middleware is a pass-through.
// publicPaths defaults to DefaultPublicPaths when nil.
func BearerAuthMiddleware(apiKeys []string, publicPaths ...string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if publicPaths == nil {
		publicPaths = DefaultPublicPaths
	}
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			switch {
			case header == "":
				writeError(w, http.StatusUnauthorized, "missing authorization header")
			case !strings.HasPrefix(header, bearerPrefix):
				writeError(w, http.StatusUnauthorized, "authorization header must use Bearer scheme")
			case !validToken(keys, strings.TrimSpace(header[len(bearerPrefix):])):
				writeError(w, http.StatusUnauthorized, "invalid api key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// validToken compares against every key in constant time.
func validToken(keys [][]byte, token string) bool {
	tok := []byte(token)
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(k, tok)
	}
	return match == 1
}
