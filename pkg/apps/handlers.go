package apps

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// Handlers serves application CRUD
type Handlers struct {
	store    *Store
	recorder audit.Recorder
}

// NewHandlers creates app handlers
func NewHandlers(store *Store, recorder audit.Recorder) *Handlers {
	return &Handlers{store: store, recorder: recorder}
}

// RegisterRoutes registers app routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/app", h.List).Methods(http.MethodGet)
	router.HandleFunc("/app", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/app/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/app/{id}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/app/{id}", h.Delete).Methods(http.MethodDelete)
}

// List returns all apps in the caller's org
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanView); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	apps, err := h.store.ListApps(r.Context(), authCtx.OrgID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, apps)
}

// Get returns one app
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanView); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	appID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	app, err := h.store.GetApp(r.Context(), authCtx.OrgID, appID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, app)
}

// Create adds an app to the caller's org
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanEdit); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req CreateAppRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	app, err := h.store.CreateApp(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionAppCreated,
		Message: "Application created",
		Details: map[string]interface{}{"app_id": app.ID, "name": app.Name},
	})
	httputil.WriteCreated(w, app)
}

// Update applies a partial app update
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanEdit); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	appID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateAppRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	app, err := h.store.UpdateApp(r.Context(), authCtx.OrgID, appID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionAppUpdated,
		Message: "Application updated",
		Details: map[string]interface{}{"app_id": app.ID},
	})
	httputil.WriteSuccess(w, app)
}

// Delete removes an app and everything scoped under it
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanEdit); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	appID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteApp(r.Context(), authCtx.OrgID, appID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionAppDeleted,
		Message: "Application deleted",
		Details: map[string]interface{}{"app_id": appID},
	})
	httputil.WriteNoContent(w)
}
