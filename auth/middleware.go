package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// IdentityFromContext returns the authenticated identity set by RequireRole,
// if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(*Identity)
	return identity, ok
}

func withIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// RequireRole is HTTP middleware that rejects requests without a valid
// bearer token carrying the given role. The authenticated identity is placed
// on the request context for the wrapped handler.
func RequireRole(verifier *Verifier, role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		identity, err := verifier.Verify(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if role != "" && !identity.HasRole(role) {
			http.Error(w, "insufficient role", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}
