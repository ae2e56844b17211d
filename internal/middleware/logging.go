package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"textbook-gateway/internal/logger"
)

// RequestLogger writes one access log line per request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				kv := []interface{}{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", chimiddleware.GetReqID(r.Context()),
				}
				if status >= http.StatusInternalServerError {
					log.Warn("request", kv...)
					return
				}
				log.Info("request", kv...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
