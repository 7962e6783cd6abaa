package onboarding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/async"
	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/mail"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// mailTimeout bounds the background invite notification
const mailTimeout = 30 * time.Second

// Handlers serves the invite endpoints. Org signup and invite acceptance
// are public; managing user invites requires an admin inside the org.
type Handlers struct {
	store    *Store
	service  *Service
	mailer   mail.Mailer
	recorder audit.Recorder
	// BaseURL is the public address invite links point at
	baseURL string
}

// NewHandlers creates onboarding handlers
func NewHandlers(store *Store, service *Service, mailer mail.Mailer, recorder audit.Recorder, baseURL string) *Handlers {
	return &Handlers{store: store, service: service, mailer: mailer, recorder: recorder, baseURL: baseURL}
}

// RegisterPublicRoutes registers the unauthenticated invite routes
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/onboarding/org", h.CreateOrgInvite).Methods(http.MethodPost)
	router.HandleFunc("/onboarding/org/{token}", h.GetOrgInvite).Methods(http.MethodGet)
	router.HandleFunc("/onboarding/org/{token}/accept", h.AcceptOrgInvite).Methods(http.MethodPost)
	router.HandleFunc("/onboarding/user/{token}", h.GetUserInvite).Methods(http.MethodGet)
	router.HandleFunc("/onboarding/user/{token}/accept", h.AcceptUserInvite).Methods(http.MethodPost)
}

// RegisterProtectedRoutes registers the admin-gated invite management
func (h *Handlers) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/onboarding/user", h.CreateUserInvite).Methods(http.MethodPost)
	router.HandleFunc("/onboarding/user", h.ListUserInvites).Methods(http.MethodGet)
	router.HandleFunc("/onboarding/user/{id}", h.UpdateUserInvite).Methods(http.MethodPut)
	router.HandleFunc("/onboarding/user/{id}", h.DeleteUserInvite).Methods(http.MethodDelete)
}

func (h *Handlers) sendInviteMail(ctx context.Context, to, subject, body string) {
	logger := observability.FromContext(ctx)
	async.SafeGo(logger, mailTimeout, "invite-mail", func(ctx context.Context) error {
		return h.mailer.Send(ctx, to, subject, body)
	})
}

// CreateOrgInvite starts an org signup and emails the invite link
func (h *Handlers) CreateOrgInvite(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgInviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	invite, err := h.store.CreateOrgInvite(r.Context(), req.Email)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.sendInviteMail(r.Context(), invite.Email, "Create your organization",
		fmt.Sprintf("Finish setting up your organization: %s/onboarding/org/%s", h.baseURL, invite.Token))

	h.recorder.Record(r.Context(), audit.Entry{
		Action:  audit.ActionOrgInviteCreated,
		Message: "Organization invite created",
		Details: map[string]interface{}{"invite_id": invite.ID},
	})
	httputil.WriteCreated(w, invite)
}

// GetOrgInvite returns a pending org signup by token
func (h *Handlers) GetOrgInvite(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	invite, err := h.store.GetOrgInviteByToken(r.Context(), token)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, invite)
}

// AcceptOrgInvite completes an org signup
func (h *Handlers) AcceptOrgInvite(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	var req AcceptOrgInviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.service.AcceptOrgInvite(r.Context(), token, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   result.Org.ID,
		UserID:  result.User.ID,
		Action:  audit.ActionOrgInviteAccepted,
		Message: "Organization invite accepted",
		Details: map[string]interface{}{"org_slug": result.Org.Slug},
	})
	httputil.WriteCreated(w, result)
}

// CreateUserInvite invites a member into the caller's org. Admin only.
func (h *Handlers) CreateUserInvite(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.AdminOnly); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req CreateUserInviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	invite, err := h.store.CreateUserInvite(r.Context(), authCtx.OrgID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.sendInviteMail(r.Context(), invite.Email, "You have been invited",
		fmt.Sprintf("Join your team: %s/onboarding/user/%s", h.baseURL, invite.Token))

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionUserInviteCreated,
		Message: "User invite created",
		Details: map[string]interface{}{"invite_id": invite.ID, "email": invite.Email},
	})
	httputil.WriteCreated(w, invite)
}

// ListUserInvites returns the org's invites. Admin only.
func (h *Handlers) ListUserInvites(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.AdminOnly); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	invites, err := h.store.ListUserInvites(r.Context(), authCtx.OrgID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, invites)
}

// UpdateUserInvite edits a pending invite's role. Admin only.
func (h *Handlers) UpdateUserInvite(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.AdminOnly); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	inviteID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateUserInviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	invite, err := h.store.UpdateUserInvite(r.Context(), authCtx.OrgID, inviteID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionUserInviteUpdated,
		Message: "User invite updated",
		Details: map[string]interface{}{"invite_id": inviteID},
	})
	httputil.WriteSuccess(w, invite)
}

// DeleteUserInvite withdraws a pending invite. Admin only.
func (h *Handlers) DeleteUserInvite(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.AdminOnly); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	inviteID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteUserInvite(r.Context(), authCtx.OrgID, inviteID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionUserInviteDeleted,
		Message: "User invite deleted",
		Details: map[string]interface{}{"invite_id": inviteID},
	})
	httputil.WriteNoContent(w)
}

// GetUserInvite returns a pending member invite by token
func (h *Handlers) GetUserInvite(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	invite, err := h.store.GetUserInviteByToken(r.Context(), token)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, invite)
}

// AcceptUserInvite completes a member signup
func (h *Handlers) AcceptUserInvite(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	var req AcceptUserInviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	member, err := h.service.AcceptUserInvite(r.Context(), token, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   member.OrgID,
		UserID:  member.ID,
		Action:  audit.ActionUserInviteAccepted,
		Message: "User invite accepted",
	})
	httputil.WriteCreated(w, member)
}
