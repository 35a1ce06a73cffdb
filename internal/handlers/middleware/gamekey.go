package middleware

import (
	"net/http"

	"github.com/nkiryanov/refundpanel/internal/handlers/render"
)

const GameKeyHeader = "X-Game-Key"

type keyHasher interface {
	Compare(hashedKey string, key string) error
}

// Let only game server in: it has to send the key which hash is known
func GameKeyMiddleware(hasher keyHasher, keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(GameKeyHeader)
			if key == "" || hasher.Compare(keyHash, key) != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
