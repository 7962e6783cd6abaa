package apikeys

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// Handlers serves API key management. The whole surface sits behind the
// strict api-key-access requirement, which stays deliberately tighter than
// the ordinary admin gate.
type Handlers struct {
	store    *Store
	recorder audit.Recorder
	metrics  *observability.Metrics
}

// NewHandlers creates API key handlers
func NewHandlers(store *Store, recorder audit.Recorder, metrics *observability.Metrics) *Handlers {
	return &Handlers{store: store, recorder: recorder, metrics: metrics}
}

// RegisterRoutes registers API key routes on the router. The gate applies
// uniformly to every route, so it lives here instead of in each handler.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	gate := auth.Require(rbac.APIKeyAccess, h.metrics)
	router.Handle("/api_key", gate(http.HandlerFunc(h.List))).Methods(http.MethodGet)
	router.Handle("/api_key", gate(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	router.Handle("/api_key/mine", gate(http.HandlerFunc(h.ListMine))).Methods(http.MethodGet)
	router.Handle("/api_key/{id}", gate(http.HandlerFunc(h.Get))).Methods(http.MethodGet)
	router.Handle("/api_key/{id}", gate(http.HandlerFunc(h.Update))).Methods(http.MethodPut)
	router.Handle("/api_key/{id}", gate(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)
	router.Handle("/api_key/{id}/regenerate", gate(http.HandlerFunc(h.Regenerate))).Methods(http.MethodPost)
}

func masked(apiKey *APIKey) *APIKey {
	clone := *apiKey
	clone.Key = Mask(clone.Key)
	return &clone
}

func maskedAll(keys []*APIKey) []*APIKey {
	out := make([]*APIKey, len(keys))
	for i, apiKey := range keys {
		out[i] = masked(apiKey)
	}
	return out
}

// Create issues a key for the calling user. The response carries the full
// secret; it is never readable again.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req CreateAPIKeyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	apiKey, err := h.store.Create(r.Context(), authCtx.OrgID, authCtx.UserID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionAPIKeyCreated,
		Message: "API key created",
		Details: map[string]interface{}{"api_key_id": apiKey.ID},
	})
	httputil.WriteCreated(w, apiKey)
}

// List returns every key in the org, masked
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	keys, err := h.store.List(r.Context(), authCtx.OrgID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, maskedAll(keys))
}

// ListMine returns the calling user's keys, masked
func (h *Handlers) ListMine(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	keys, err := h.store.ListByUser(r.Context(), authCtx.OrgID, authCtx.UserID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, maskedAll(keys))
}

// Get returns one key, masked
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	keyID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	apiKey, err := h.store.Get(r.Context(), authCtx.OrgID, keyID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, masked(apiKey))
}

// Update edits the description or active flag
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	keyID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateAPIKeyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	apiKey, err := h.store.Update(r.Context(), authCtx.OrgID, keyID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionAPIKeyUpdated,
		Message: "API key updated",
		Details: map[string]interface{}{"api_key_id": keyID},
	})
	httputil.WriteSuccess(w, masked(apiKey))
}

// Delete revokes a key permanently
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	keyID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), authCtx.OrgID, keyID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionAPIKeyDeleted,
		Message: "API key deleted",
		Details: map[string]interface{}{"api_key_id": keyID},
	})
	httputil.WriteNoContent(w)
}

// Regenerate swaps the secret, keeping the row. The response carries the
// new secret in full.
func (h *Handlers) Regenerate(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	keyID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	apiKey, err := h.store.Regenerate(r.Context(), authCtx.OrgID, keyID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionAPIKeyRegenerated,
		Message: "API key regenerated",
		Details: map[string]interface{}{"api_key_id": keyID},
	})
	httputil.WriteSuccess(w, apiKey)
}
