package middleware

import (
	"net/http"
)

// AllowOptions answers OPTIONS requests with an empty success response.
// The CORS layer only intercepts preflights (those carrying
// Access-Control-Request-Method); a bare OPTIONS would otherwise fall
// through to the router's method-not-allowed handler. The wire contract
// promises success for every OPTIONS, so the remainder stops here instead
// of reaching business logic.
func AllowOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
