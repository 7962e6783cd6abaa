package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/contextkeys"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

func auditTestRequest(t *testing.T, perms rbac.PermissionSnapshot) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/audit_log", nil)
	authCtx := &auth.Context{UserID: "user-1", OrgID: "org-1", Perms: perms}
	req = req.WithContext(contextkeys.WithAuth(req.Context(), authCtx))
	return req, httptest.NewRecorder()
}

func TestListRequiresAdmin(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	router := mux.NewRouter()
	NewHandlers(NewDBStore(db), NopRecorder{}, nil).RegisterRoutes(router)
	req, rec := auditTestRequest(t, rbac.PermissionSnapshot{CanView: true, CanEdit: true})

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestListAllowsAdminAndMaster(t *testing.T) {
	for _, perms := range []rbac.PermissionSnapshot{
		{IsAdmin: true},
		{IsMaster: true},
	} {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
			WithArgs("org-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT id, org_id, user_id, action`).
			WithArgs("org-1", 20, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "user_id", "action", "message", "details", "created_at"}).
				AddRow("log-1", "org-1", "user-1", "org_updated", "Organization updated", nil, time.Now()))

		router := mux.NewRouter()
		NewHandlers(NewDBStore(db), NopRecorder{}, nil).RegisterRoutes(router)

		req, rec := auditTestRequest(t, perms)
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("perms %+v: status = %d, want 200; body: %s", perms, rec.Code, rec.Body.String())
		}
		db.Close()
	}
}
