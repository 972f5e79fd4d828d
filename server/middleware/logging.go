package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/server/endpoint"
)

// RequestLogger logs each request once it completes, at warn for 4xx and
// error for 5xx. Operational probes are not logged.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if endpoint.IsProbe(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			status := rec.Status()
			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				logger.FieldStatus, status,
				"bytes", rec.bytes,
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			l := log.WithContext(r.Context())
			switch {
			case status >= 500:
				l.Error("request", fields)
			case status >= 400:
				l.Warn("request", fields)
			default:
				l.Info("request", fields)
			}
		})
	}
}
