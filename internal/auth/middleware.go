package auth

import (
	"context"
	"net/http"

	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware rejects requests without a valid bearer token and stores the caller's
// identity in the request context.
func Middleware(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}

			identity, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", r.Method+" "+r.URL.Path+": "+err.Error())
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireOperator allows only admins and moderators through. It must run after Middleware.
func RequireOperator(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := FromContext(r.Context())
			if !ok || !identity.IsOperator() {
				log.LogSecurity("FORBIDDEN", r.Method+" "+r.URL.Path+" by "+UserID(r.Context()))
				utils.WriteError(w, http.StatusForbidden, "Forbidden", "operator role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok && identity != nil
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	if identity, ok := FromContext(ctx); ok {
		return identity.UserID
	}
	return ""
}
