package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"cartshare/internal/identity"
	"cartshare/pkg/logger"
)

type ctxKey struct{ name string }

var ctxKeyUser = ctxKey{name: "user"}

// RoleEnsurer records first-time users with a default role.
type RoleEnsurer interface {
	EnsureUser(ctx context.Context, user identity.User) error
}

// AuthMiddleware verifies the Bearer ID token, makes sure the user's
// profile and role records exist, and attaches the user to the request
// context.
type AuthMiddleware struct {
	Verifier identity.Verifier
	Roles    RoleEnsurer
	Logg     *logger.Logger
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		idToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		user, err := m.Verifier.Verify(r.Context(), idToken)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		ctx := m.Logg.WithUserID(r.Context(), user.UID)

		// First sign-in bookkeeping must not block the request.
		if err := m.Roles.EnsureUser(ctx, *user); err != nil {
			m.Logg.Error(ctx, "failed to ensure user records", err)
		}

		ctx = context.WithValue(ctx, ctxKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated user attached by AuthMiddleware.
func UserFromContext(ctx context.Context) (*identity.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(*identity.User)
	return user, ok
}

// RequestLogMiddleware carries the chi request id in the log context.
func RequestLogMiddleware(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				r = r.WithContext(logg.WithRequestID(r.Context(), reqID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
