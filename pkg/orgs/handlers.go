package orgs

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// Handlers serves org profile endpoints
type Handlers struct {
	store    *Store
	recorder audit.Recorder
}

// NewHandlers creates org handlers
func NewHandlers(store *Store, recorder audit.Recorder) *Handlers {
	return &Handlers{store: store, recorder: recorder}
}

// RegisterRoutes registers org routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	master := auth.Require(rbac.MasterOnly, h.store.metrics)
	router.HandleFunc("/org", h.Get).Methods(http.MethodGet)
	router.Handle("/org", master(http.HandlerFunc(h.Update))).Methods(http.MethodPut)
	router.HandleFunc("/org/slug/{slug}", h.CheckSlug).Methods(http.MethodGet)
}

// Get returns the caller's organization
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	org, err := h.store.GetOrg(r.Context(), authCtx.OrgID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// Update modifies the org profile. Master only.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req UpdateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := h.store.UpdateOrg(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionOrgUpdated,
		Message: "Organization updated",
	})
	httputil.WriteSuccess(w, org)
}

// CheckSlug reports whether a slug is already taken
func (h *Handlers) CheckSlug(w http.ResponseWriter, r *http.Request) {
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	exists, err := h.store.SlugExists(r.Context(), slug)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"exists": exists})
}
