package envs

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apps"
	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/envtypes"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// envTypeResolver is the slice of the env type store the handlers need
type envTypeResolver interface {
	GetEnvType(ctx context.Context, orgID, envTypeID string) (*envtypes.EnvType, error)
}

// appResolver confirms the target app belongs to the caller's org
type appResolver interface {
	GetApp(ctx context.Context, orgID, appID string) (*apps.App, error)
}

// Handlers serves environment variable endpoints
type Handlers struct {
	store    *Store
	envTypes envTypeResolver
	apps     appResolver
	recorder audit.Recorder
}

// NewHandlers creates env variable handlers
func NewHandlers(store *Store, envTypes envTypeResolver, appStore appResolver, recorder audit.Recorder) *Handlers {
	return &Handlers{store: store, envTypes: envTypes, apps: appStore, recorder: recorder}
}

// RegisterRoutes registers env variable routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/env", h.List).Methods(http.MethodGet)
	router.HandleFunc("/env", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/env", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/env", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/env/one", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/env/batch", h.BatchCreate).Methods(http.MethodPost)
	router.HandleFunc("/env/batch", h.BatchUpdate).Methods(http.MethodPut)
	router.HandleFunc("/env/batch", h.BatchDelete).Methods(http.MethodDelete)
	router.HandleFunc("/env/summary/{app_id}", h.Summary).Methods(http.MethodGet)
}

// authorizeScope runs the full guard sequence for one (app, env type)
// scope: base flag first so callers without it get 403 regardless of
// whether the resources exist, then ownership, then the production
// escalation. Returns false after writing the response.
func (h *Handlers) authorizeScope(w http.ResponseWriter, r *http.Request, authCtx *auth.Context, appID, envTypeID string, req rbac.Requirement) bool {
	if err := rbac.Check(authCtx.Perms, req); err != nil {
		httputil.WriteAppError(w, r, err)
		return false
	}
	if !httputil.RequireNonEmpty(w, appID, "app_id") {
		return false
	}
	if !httputil.RequireNonEmpty(w, envTypeID, "env_type_id") {
		return false
	}

	if _, err := h.apps.GetApp(r.Context(), authCtx.OrgID, appID); err != nil {
		httputil.WriteAppError(w, r, err)
		return false
	}
	envType, err := h.envTypes.GetEnvType(r.Context(), authCtx.OrgID, envTypeID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return false
	}

	if err := rbac.CheckEnvAccess(authCtx.Perms, envType.Name, req); err != nil {
		httputil.WriteAppError(w, r, err)
		return false
	}
	return true
}

// Get returns one variable by key
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	appID := httputil.ParseQueryString(r, "app_id", "")
	envTypeID := httputil.ParseQueryString(r, "env_type_id", "")
	key := httputil.ParseQueryString(r, "key", "")

	if !h.authorizeScope(w, r, authCtx, appID, envTypeID, rbac.CanView) {
		return
	}
	if !httputil.RequireNonEmpty(w, key, "key") {
		return
	}

	env, err := h.store.Get(r.Context(), authCtx.OrgID, appID, envTypeID, key)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvViewed,
		Message: "Environment variable viewed",
		Details: map[string]interface{}{"app_id": appID, "env_type_id": envTypeID, "key": key},
	})
	httputil.WriteSuccess(w, env)
}

// List returns all variables in a scope
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	appID := httputil.ParseQueryString(r, "app_id", "")
	envTypeID := httputil.ParseQueryString(r, "env_type_id", "")

	if !h.authorizeScope(w, r, authCtx, appID, envTypeID, rbac.CanView) {
		return
	}

	envs, err := h.store.List(r.Context(), authCtx.OrgID, appID, envTypeID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvsViewed,
		Message: "Environment variables viewed",
		Details: map[string]interface{}{"app_id": appID, "env_type_id": envTypeID},
	})
	httputil.WriteSuccess(w, envs)
}

// Create adds one variable
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req CreateEnvRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !h.authorizeScope(w, r, authCtx, req.AppID, req.EnvTypeID, rbac.CanEdit) {
		return
	}

	env, err := h.store.Create(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvCreated,
		Message: "Environment variable created",
		Details: map[string]interface{}{"app_id": req.AppID, "env_type_id": req.EnvTypeID, "key": req.Key},
	})
	httputil.WriteCreated(w, env)
}

// Update sets a variable's value
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req UpdateEnvRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !h.authorizeScope(w, r, authCtx, req.AppID, req.EnvTypeID, rbac.CanEdit) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Key, "key") {
		return
	}

	env, err := h.store.Update(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvUpdated,
		Message: "Environment variable updated",
		Details: map[string]interface{}{"app_id": req.AppID, "env_type_id": req.EnvTypeID, "key": req.Key},
	})
	httputil.WriteSuccess(w, env)
}

// Delete removes one variable by key
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	appID := httputil.ParseQueryString(r, "app_id", "")
	envTypeID := httputil.ParseQueryString(r, "env_type_id", "")
	key := httputil.ParseQueryString(r, "key", "")

	if !h.authorizeScope(w, r, authCtx, appID, envTypeID, rbac.CanEdit) {
		return
	}
	if !httputil.RequireNonEmpty(w, key, "key") {
		return
	}

	if err := h.store.Delete(r.Context(), authCtx.OrgID, appID, envTypeID, key); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvDeleted,
		Message: "Environment variable deleted",
		Details: map[string]interface{}{"app_id": appID, "env_type_id": envTypeID, "key": key},
	})
	httputil.WriteNoContent(w)
}

// BatchCreate inserts several variables atomically
func (h *Handlers) BatchCreate(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req BatchRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !h.authorizeScope(w, r, authCtx, req.AppID, req.EnvTypeID, rbac.CanEdit) {
		return
	}
	if len(req.Envs) == 0 {
		httputil.WriteValidationError(w, "envs must not be empty")
		return
	}

	created, err := h.store.BatchCreate(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvsBatchCreated,
		Message: "Environment variables batch created",
		Details: map[string]interface{}{"app_id": req.AppID, "env_type_id": req.EnvTypeID, "count": len(created)},
	})
	httputil.WriteCreated(w, created)
}

// BatchUpdate upserts several variables atomically
func (h *Handlers) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req BatchRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !h.authorizeScope(w, r, authCtx, req.AppID, req.EnvTypeID, rbac.CanEdit) {
		return
	}
	if len(req.Envs) == 0 {
		httputil.WriteValidationError(w, "envs must not be empty")
		return
	}

	updated, err := h.store.BatchUpdate(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvsBatchUpdated,
		Message: "Environment variables batch updated",
		Details: map[string]interface{}{"app_id": req.AppID, "env_type_id": req.EnvTypeID, "count": len(updated)},
	})
	httputil.WriteSuccess(w, updated)
}

// BatchDelete removes several keys from a scope
func (h *Handlers) BatchDelete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req BatchDeleteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !h.authorizeScope(w, r, authCtx, req.AppID, req.EnvTypeID, rbac.CanEdit) {
		return
	}
	if len(req.Keys) == 0 {
		httputil.WriteValidationError(w, "keys must not be empty")
		return
	}

	deleted, err := h.store.BatchDelete(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionEnvsBatchDeleted,
		Message: "Environment variables batch deleted",
		Details: map[string]interface{}{"app_id": req.AppID, "env_type_id": req.EnvTypeID, "count": deleted},
	})
	httputil.WriteSuccess(w, map[string]int64{"deleted": deleted})
}

// Summary returns per-env-type variable counts for one app
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanView); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	appID, ok := httputil.ParsePathStringOrError(w, r, "app_id")
	if !ok {
		return
	}
	if _, err := h.apps.GetApp(r.Context(), authCtx.OrgID, appID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	summaries, err := h.store.Summary(r.Context(), authCtx.OrgID, appID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, summaries)
}
