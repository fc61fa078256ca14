package middleware

import "net/http"

// MaxBodySize caps request body size. Chat messages may embed data-URI
// images, so the cap is generous compared to plain-text APIs.
func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
