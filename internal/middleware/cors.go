package middleware

import "net/http"

// Browser clients call the gateway cross-origin, so every response carries
// the CORS headers and OPTIONS preflights short-circuit here.
const (
	allowOrigin  = "*"
	allowHeaders = "authorization, x-client-info, apikey, content-type"
)

func CORS() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
