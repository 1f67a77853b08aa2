package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/kbukum/runkit/logger"
)

var quietPaths = []string{"/health", "/metrics", "/version"}

// RequestLogger logs every request with method, path, status, response
// size and duration. Probe paths are skipped. The level follows the
// status: 5xx at error, 4xx at warn, the rest at debug.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(quietPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":             r.Method,
				"path":               r.URL.Path,
				"status":             sw.status,
				"bytes":              sw.bytes,
				logger.FieldDuration: duration.Milliseconds(),
			}
			if duration > 500*time.Millisecond {
				fields["slow"] = true
			}

			l := log.WithContext(r.Context())
			switch {
			case sw.status >= 500:
				l.Error("Request completed", fields)
			case sw.status >= 400:
				l.Warn("Request completed", fields)
			default:
				l.Debug("Request completed", fields)
			}
		})
	}
}
