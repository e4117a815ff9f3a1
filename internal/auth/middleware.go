package auth

import (
	"context"
	"net/http"
	"strings"
)

type usernameContextKey struct{}

// Middleware gates admin endpoints behind a bearer access token. The token
// must verify with kind=access and its subject must still exist in the
// credential store; the username is then placed in the request context.
func Middleware(tokens *TokenService, store CredentialStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			unauthorized(w, "missing authorization token")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w, "invalid authorization format")
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(parts[1]), TokenKindAccess)
		if err != nil {
			unauthorized(w, "could not validate credentials")
			return
		}

		if _, err := store.GetByUsername(r.Context(), claims.Subject); err != nil {
			unauthorized(w, "could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), usernameContextKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UsernameFromContext returns the authenticated admin username set by
// Middleware.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameContextKey{}).(string)
	return username, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}
