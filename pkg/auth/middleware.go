package auth

import (
	"net/http"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/contextkeys"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// Middleware authenticates every request and attaches the resolved auth
// context. Failures short-circuit with 401 before any handler logic runs.
type Middleware struct {
	validator *Validator
	store     *Store
}

// NewMiddleware creates the authentication middleware
func NewMiddleware(validator *Validator, store *Store) *Middleware {
	return &Middleware{validator: validator, store: store}
}

// Handler wraps next with authentication and role resolution
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, credType, err := m.validator.Validate(ctx, r)
		if err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}

		authCtx, err := m.store.ResolveAccess(ctx, userID)
		if err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
		authCtx.Credential = credType

		ctx = contextkeys.WithAuth(ctx, authCtx)
		ctx = contextkeys.WithUserID(ctx, authCtx.UserID)
		ctx = observability.WithUserID(ctx, authCtx.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require returns middleware enforcing a policy requirement for a subtree.
// Handlers with resource-dependent rules (production escalation, ownership)
// still run their own checks; this guards the cheap static ones.
func Require(req rbac.Requirement, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := FromRequest(r)
			if authCtx == nil {
				httputil.WriteAppError(w, r, apperrors.Authentication("authentication required"))
				return
			}
			if err := rbac.Check(authCtx.Perms, req); err != nil {
				if metrics != nil {
					metrics.PolicyDenials.WithLabelValues(string(req)).Inc()
				}
				httputil.WriteAppError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
