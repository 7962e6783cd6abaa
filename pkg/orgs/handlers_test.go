package orgs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/contextkeys"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

func orgRequest(method, target, body string, perms rbac.PermissionSnapshot) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	authCtx := &auth.Context{UserID: "user-1", OrgID: "org-1", Perms: perms}
	return req.WithContext(contextkeys.WithAuth(req.Context(), authCtx))
}

// Updating the org profile is reserved for the master role; an admin
// without the flag is refused before any parsing.
func TestUpdateOrgRequiresMaster(t *testing.T) {
	store, _ := newStore(t, nil)
	router := mux.NewRouter()
	NewHandlers(store, audit.NopRecorder{}).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, orgRequest(http.MethodPut, "/org",
		`{"name":"Acme Corp"}`, rbac.PermissionSnapshot{IsAdmin: true}))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403; body %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateOrgAsMaster(t *testing.T) {
	store, mock := newStore(t, nil)
	router := mux.NewRouter()
	NewHandlers(store, audit.NopRecorder{}).RegisterRoutes(router)

	mock.ExpectQuery(`SELECT .+ FROM orgs WHERE id = \$1`).
		WithArgs("org-1").
		WillReturnRows(orgRow("org-1", "Acme", "acme"))
	mock.ExpectQuery(`UPDATE orgs`).
		WithArgs("Acme Corp", "acme", "", "", "", "org-1").
		WillReturnRows(orgRow("org-1", "Acme Corp", "acme"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, orgRequest(http.MethodPut, "/org",
		`{"name":"Acme Corp"}`, rbac.PermissionSnapshot{IsMaster: true}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Acme Corp") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
