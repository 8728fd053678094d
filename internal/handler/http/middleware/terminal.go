package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
)

const TerminalKeyHeader = "X-Terminal-Key"

// TerminalKey guards the punch ingestion endpoint with a shared key. An
// empty key disables ingestion entirely.
func TerminalKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				response.Forbidden(w, "Punch ingestion is disabled")
				return
			}

			got := r.Header.Get(TerminalKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				response.Unauthorized(w, "Invalid terminal key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
