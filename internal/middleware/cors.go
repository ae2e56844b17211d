package middleware

import (
	"net/http"
	"strings"
)

// CORS allows the configured frontend origin. An empty or "*" origin allows
// any origin.
func CORS(origin string) func(http.Handler) http.Handler {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allow := origin
			if allow == "" {
				allow = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", allow)
			if allow != "*" {
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
