package envtypes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// Handlers serves environment type CRUD
type Handlers struct {
	store    *Store
	recorder audit.Recorder
}

// NewHandlers creates env type handlers
func NewHandlers(store *Store, recorder audit.Recorder) *Handlers {
	return &Handlers{store: store, recorder: recorder}
}

// RegisterRoutes registers env type routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/env_type", h.List).Methods(http.MethodGet)
	router.HandleFunc("/env_type", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/env_type/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/env_type/{id}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/env_type/{id}", h.Delete).Methods(http.MethodDelete)
}

// List returns all env types in the caller's org
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanView); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	envTypes, err := h.store.ListEnvTypes(r.Context(), authCtx.OrgID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, envTypes)
}

// Get returns one env type
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanView); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	envTypeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	envType, err := h.store.GetEnvType(r.Context(), authCtx.OrgID, envTypeID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, envType)
}

// Create adds an env type
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanEdit); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req CreateEnvTypeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	envType, err := h.store.CreateEnvType(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvTypeCreated,
		Message: "Environment type created",
		Details: map[string]interface{}{"env_type_id": envType.ID, "name": envType.Name},
	})
	httputil.WriteCreated(w, envType)
}

// Update applies a partial env type update
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanEdit); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	envTypeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateEnvTypeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	envType, err := h.store.UpdateEnvType(r.Context(), authCtx.OrgID, envTypeID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvTypeUpdated,
		Message: "Environment type updated",
		Details: map[string]interface{}{"env_type_id": envType.ID},
	})
	httputil.WriteSuccess(w, envType)
}

// Delete removes an env type
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanEdit); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	envTypeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteEnvType(r.Context(), authCtx.OrgID, envTypeID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvTypeDeleted,
		Message: "Environment type deleted",
		Details: map[string]interface{}{"env_type_id": envTypeID},
	})
	httputil.WriteNoContent(w)
}
