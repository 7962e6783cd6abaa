package audit

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// Handlers serves the audit log read endpoint
type Handlers struct {
	store    *DBStore
	recorder Recorder
	metrics  *observability.Metrics
}

// NewHandlers creates audit handlers
func NewHandlers(store *DBStore, recorder Recorder, metrics *observability.Metrics) *Handlers {
	return &Handlers{store: store, recorder: recorder, metrics: metrics}
}

// RegisterRoutes registers audit routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	admin := auth.Require(rbac.AdminOnly, h.metrics)
	router.Handle("/audit_log", admin(http.HandlerFunc(h.List))).Methods(http.MethodGet)
}

// List returns one page of the caller's org audit trail. Admin or master
// only; reading the trail is itself audited.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	pagination, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	page, err := h.store.List(r.Context(), authCtx.OrgID, pagination.Page, pagination.PerPage)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  ActionAuditLogsViewed,
		Message: "Audit logs viewed",
	})

	httputil.WriteSuccess(w, page)
}
