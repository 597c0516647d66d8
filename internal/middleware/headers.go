package middleware

import (
	"net/http"
	"strings"
)

// securityHeaders go on every response. Participant ids travel in API
// paths, so no referrer leaves the site; the microphone stays available to
// same-origin pages recording challenges.
var securityHeaders = map[string]string{
	"Referrer-Policy":            "no-referrer",
	"X-Content-Type-Options":     "nosniff",
	"X-Frame-Options":            "DENY",
	"Cross-Origin-Opener-Policy": "same-origin",
	"Permissions-Policy":         "camera=(), geolocation=(), microphone=(self)",
}

// uncached reports whether path serves per-request data: the API and the
// service endpoints. Static files keep the file server's validators.
func uncached(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/health" || path == "/version"
}

// Headers applies the response header policy.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		if uncached(r.URL.Path) {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}
