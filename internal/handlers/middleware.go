package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/libs/auth"
)

// Identity is the caller extracted from a verified access token.
type Identity struct {
	ProfileID string
	Role      model.Role
	FullName  string
}

type identityKey struct{}

func identityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// ContextWithIdentity is exported for handler tests that bypass the
// middleware.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// RequireAuth verifies the bearer token and stores the caller identity in the
// request context. Role checks happen per handler; the middleware only
// answers "who is this".
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			claims, err := auth.ParseAndVerifyHS256(token, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			role, ok := model.ParseRole(claims.Role)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			id := Identity{ProfileID: claims.Sub, Role: role, FullName: claims.FullName}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches an identity when a valid bearer token is present and
// passes the request through untouched otherwise. Public reads use it so
// admin-only query flags can be honored without forcing sign-in.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
				if claims, err := auth.ParseAndVerifyHS256(token, secret); err == nil {
					if role, ok := model.ParseRole(claims.Role); ok {
						id := Identity{ProfileID: claims.Sub, Role: role, FullName: claims.FullName}
						r = r.WithContext(ContextWithIdentity(r.Context(), id))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireIdentity loads the caller set by RequireAuth, rejecting with 401 if
// the middleware was not applied.
func requireIdentity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return Identity{}, false
	}
	return id, true
}

func requireRole(w http.ResponseWriter, r *http.Request, roles ...model.Role) (Identity, bool) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return Identity{}, false
	}
	for _, role := range roles {
		if id.Role == role {
			return id, true
		}
	}
	writeError(w, http.StatusForbidden, "insufficient role")
	return Identity{}, false
}
