// Package roles exposes the role management HTTP endpoints on top of the
// rbac store.
package roles

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// Handlers serves role CRUD and stats
type Handlers struct {
	store    *rbac.Store
	recorder audit.Recorder
	metrics  *observability.Metrics
}

// NewHandlers creates role handlers
func NewHandlers(store *rbac.Store, recorder audit.Recorder, metrics *observability.Metrics) *Handlers {
	return &Handlers{store: store, recorder: recorder, metrics: metrics}
}

// RegisterRoutes registers role routes on the router. Reads are open to any
// authenticated caller; mutations and stats carry the admin gate.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	admin := auth.Require(rbac.AdminOnly, h.metrics)
	router.HandleFunc("/role", h.List).Methods(http.MethodGet)
	router.Handle("/role", admin(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	router.Handle("/role/stats", admin(http.HandlerFunc(h.Stats))).Methods(http.MethodGet)
	router.HandleFunc("/role/{id}", h.Get).Methods(http.MethodGet)
	router.Handle("/role/{id}", admin(http.HandlerFunc(h.Update))).Methods(http.MethodPut)
	router.Handle("/role/{id}", admin(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)
}

// List returns every role in the caller's org
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	roles, err := h.store.ListRoles(r.Context(), authCtx.OrgID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, roles)
}

// Get returns one role by id, scoped to the caller's org
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	roleID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	role, err := h.store.GetRole(r.Context(), authCtx.OrgID, roleID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// Stats returns each role with its user count. Admin only.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	stats, err := h.store.Stats(r.Context(), authCtx.OrgID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

// Create adds a role to the caller's org. Admin only.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req rbac.CreateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role, err := h.store.CreateRole(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionRoleCreated,
		Message: "Role created",
		Details: map[string]interface{}{"role_id": role.ID, "name": role.Name},
	})
	httputil.WriteCreated(w, role)
}

// Update applies a partial role update. Admin only; the master flag is
// rejected by the store before anything is touched.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	roleID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req rbac.UpdateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role, err := h.store.UpdateRole(r.Context(), authCtx.OrgID, roleID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionRoleUpdated,
		Message: "Role updated",
		Details: map[string]interface{}{"role_id": role.ID},
	})
	httputil.WriteSuccess(w, role)
}

// Delete removes a role. Admin only; the master role is undeletable.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	roleID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteRole(r.Context(), authCtx.OrgID, roleID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionRoleDeleted,
		Message: "Role deleted",
		Details: map[string]interface{}{"role_id": roleID},
	})
	httputil.WriteNoContent(w)
}
