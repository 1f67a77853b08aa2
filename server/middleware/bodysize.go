package middleware

import "net/http"

// BodySizeLimit caps request bodies at limit bytes. Reads past the limit
// fail, which handlers report as invalid input. limit <= 0 disables the cap.
func BodySizeLimit(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
