package middleware

import (
	"net/http"
	"strings"

	"hrleave/internal/domain/auth"
)

// Auth attaches the caller named by a valid bearer token. Requests without
// one pass through anonymously; RequireAuth guards the routes that need it.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := auth.WithCaller(r.Context(), claims.Caller())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func GetCaller(r *http.Request) (auth.Caller, bool) {
	return auth.CallerFromContext(r.Context())
}
