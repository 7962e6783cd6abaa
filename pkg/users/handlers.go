package users

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/async"
	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// idpMirrorTimeout bounds the background identity provider calls
const idpMirrorTimeout = 15 * time.Second

// Handlers serves user management endpoints
type Handlers struct {
	store    *Store
	idp      IdentityProvider
	recorder audit.Recorder
}

// NewHandlers creates user handlers. idp may be nil in tests; mirroring is
// skipped when unset.
func NewHandlers(store *Store, idp IdentityProvider, recorder audit.Recorder) *Handlers {
	return &Handlers{store: store, idp: idp, recorder: recorder}
}

// RegisterRoutes registers user routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/user", h.List).Methods(http.MethodGet)
	router.HandleFunc("/user/me", h.Me).Methods(http.MethodGet)
	router.HandleFunc("/user/me", h.UpdateProfile).Methods(http.MethodPut)
	router.HandleFunc("/user/password_reset", h.PasswordReset).Methods(http.MethodPost)
	router.HandleFunc("/user/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/user/{id}/role", h.UpdateRole).Methods(http.MethodPut)
	router.HandleFunc("/user/{id}", h.Delete).Methods(http.MethodDelete)
}

// List returns all members of the caller's org
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	members, err := h.store.ListUsers(r.Context(), authCtx.OrgID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

// Me returns the calling user
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	user, err := h.store.GetUser(r.Context(), authCtx.OrgID, authCtx.UserID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// Get returns one org member by id
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.store.GetUser(r.Context(), authCtx.OrgID, userID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// UpdateProfile updates the calling user's own profile. The change is
// mirrored to the identity provider in the background so the next login
// shows the same data; a mirror failure is logged, never surfaced.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req UpdateProfileRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.store.UpdateProfile(r.Context(), authCtx.OrgID, authCtx.UserID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	if h.idp != nil && user.ExternalID != "" {
		logger := observability.FromContext(r.Context())
		externalID, name, picture := user.ExternalID, user.Name, user.ProfilePictureURL
		async.SafeGo(logger, idpMirrorTimeout, "idp-profile-mirror", func(ctx context.Context) error {
			return h.idp.UpdateUser(ctx, externalID, name, picture)
		})
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionUserUpdated,
		Message: "User profile updated",
	})
	httputil.WriteSuccess(w, user)
}

// UpdateRole reassigns a member's role. Admin only; the new snapshot takes
// effect on the member's next request.
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.AdminOnly); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RoleID, "role_id") {
		return
	}

	user, err := h.store.UpdateRole(r.Context(), authCtx.OrgID, userID, req.RoleID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionUserRoleUpdated,
		Message: "User role updated",
		Details: map[string]interface{}{"user_id": userID, "role_id": req.RoleID},
	})
	httputil.WriteSuccess(w, user)
}

// Delete removes a member from the org. Admin only. The identity provider
// account is removed in the background.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.AdminOnly); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.store.GetUser(r.Context(), authCtx.OrgID, userID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	if err := h.store.DeleteUser(r.Context(), authCtx.OrgID, userID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	if h.idp != nil && user.ExternalID != "" {
		logger := observability.FromContext(r.Context())
		externalID := user.ExternalID
		async.SafeGo(logger, idpMirrorTimeout, "idp-user-delete", func(ctx context.Context) error {
			return h.idp.DeleteUser(ctx, externalID)
		})
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionUserDeleted,
		Message: "User deleted",
		Details: map[string]interface{}{"user_id": userID},
	})
	httputil.WriteNoContent(w)
}

// PasswordReset asks the identity provider to send the calling user a
// password reset email
func (h *Handlers) PasswordReset(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	user, err := h.store.GetUser(r.Context(), authCtx.OrgID, authCtx.UserID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	if h.idp == nil {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, "password reset is not configured")
		return
	}
	if err := h.idp.TriggerPasswordReset(r.Context(), user.Email); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionPasswordRequested,
		Message: "Password reset requested",
	})
	httputil.WriteSuccess(w, map[string]string{"status": "reset email sent"})
}
