package middleware

import "net/http"

// apiHeaders apply to every response. The API serves JSON and report
// downloads, so nothing it returns is meant to render or be framed.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
}

const hsts = "max-age=63072000; includeSubDomains"

// SecureHeaders sets the fixed response headers, plus HSTS when strict is on.
func SecureHeaders(strict bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if strict {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}
