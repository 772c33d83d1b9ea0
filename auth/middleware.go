package auth

import (
	"chat-presence/domain/presence"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleSuperUser = "super-user"
)

// AuthenticationHeader is the handshake header read first, then Authorization.
const AuthenticationHeader = "authentication"

// IdentityVerifier resolves a credential into an Identity.
type IdentityVerifier interface {
	Identify(ctx context.Context, token string) (Identity, error)
}

// CredentialFromRequest extracts the bearer credential presented by a client.
func CredentialFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(AuthenticationHeader)); token != "" {
		return token
	}
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

// Middleware rejects requests without a valid credential and injects the
// identity into the request context for downstream handlers.
func Middleware(log *slog.Logger, verifier IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Identify(r.Context(), CredentialFromRequest(r))
			if err != nil {
				log.Warn("Rejected unauthenticated request", "path", r.URL.Path, "error", err)
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles lets through identities holding at least one of roles.
// It must run behind Middleware.
func RequireRoles(log *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			if !HasAnyRole(identity, roles...) {
				log.Warn("Rejected request lacking role", "path", r.URL.Path,
					"user_id", identity.PrincipalID, "required", roles)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func HasAnyRole(identity Identity, roles ...string) bool {
	return lo.Some(identity.Roles, roles)
}

// IdentityFromContext returns the identity injected by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// PrincipalFromContext returns the principal injected by Middleware.
func PrincipalFromContext(ctx context.Context) (presence.PrincipalID, bool) {
	identity, ok := IdentityFromContext(ctx)
	return identity.PrincipalID, ok
}
