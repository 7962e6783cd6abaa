package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/EnvSync-Cloud/envsync-api/pkg/access"
	"github.com/EnvSync-Cloud/envsync-api/pkg/apikeys"
	"github.com/EnvSync-Cloud/envsync-api/pkg/apps"
	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/cache"
	"github.com/EnvSync-Cloud/envsync-api/pkg/config"
	"github.com/EnvSync-Cloud/envsync-api/pkg/envs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/envtypes"
	"github.com/EnvSync-Cloud/envsync-api/pkg/mail"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/onboarding"
	"github.com/EnvSync-Cloud/envsync-api/pkg/orgs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
	"github.com/EnvSync-Cloud/envsync-api/pkg/roles"
	"github.com/EnvSync-Cloud/envsync-api/pkg/settings"
	"github.com/EnvSync-Cloud/envsync-api/pkg/uploads"
	"github.com/EnvSync-Cloud/envsync-api/pkg/users"
)

type stubVerifier struct {
	subject string
	err     error
}

func (s *stubVerifier) Subject(context.Context, string) (string, error) {
	return s.subject, s.err
}

type stubObjectStore struct{}

func (stubObjectStore) Put(_ context.Context, orgID string, _ []byte, _ string) (string, error) {
	return "uploads/" + orgID + "/aa/bb", nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1", Port: "0", MetricsPort: "0",
			ShutdownTimeout: time.Second,
		},
		Auth: config.AuthConfig{
			IssuerURL: "https://tenant.auth0.com",
			Audience:  "https://api.envsync.cloud",
			ClientID:  "web-client",
		},
	}
}

func newTestServer(t *testing.T, verifier auth.TokenVerifier) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c, err := cache.New(cache.Config{Backend: "memory", MemorySize: 64, TTL: time.Minute})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}

	cfg := testConfig()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics()
	recorder := audit.NopRecorder{}

	authStore := auth.NewStore(db)
	middleware := auth.NewMiddleware(auth.NewValidator(verifier, authStore, metrics), authStore)

	orgStore := orgs.NewStore(db, c, metrics)
	roleStore := rbac.NewStore(db)
	envTypeStore := envtypes.NewStore(db)
	appStore := apps.NewStore(db)
	userStore := users.NewStore(db)
	onboardingStore := onboarding.NewStore(db)
	onboardingService := onboarding.NewService(onboardingStore, orgStore, roleStore, envTypeStore, userStore, nil)

	handlers := Handlers{
		Access:     access.NewHandlers(cfg.Auth),
		Onboarding: onboarding.NewHandlers(onboardingStore, onboardingService, mail.NopMailer{}, recorder, "https://app.envsync.cloud"),
		Orgs:       orgs.NewHandlers(orgStore, recorder),
		Users:      users.NewHandlers(userStore, nil, recorder),
		Roles:      roles.NewHandlers(roleStore, recorder, metrics),
		Apps:       apps.NewHandlers(appStore, recorder),
		EnvTypes:   envtypes.NewHandlers(envTypeStore, recorder),
		Envs:       envs.NewHandlers(envs.NewStore(db), envTypeStore, appStore, recorder),
		APIKeys:    apikeys.NewHandlers(apikeys.NewStore(db), recorder, metrics),
		Settings:   settings.NewHandlers(settings.NewStore(db), recorder),
		Uploads:    uploads.NewHandlers(stubObjectStore{}, recorder),
		Audit:      audit.NewHandlers(audit.NewDBStore(db), recorder, metrics),
	}

	return NewServer(cfg, logger, metrics, db, c, middleware, recorder, handlers), mock
}

func TestHealthz(t *testing.T) {
	server, mock := newTestServer(t, &stubVerifier{})
	mock.ExpectPing()

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Components["database"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestHealthzDegraded(t *testing.T) {
	server, mock := newTestServer(t, &stubVerifier{})
	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestVersion(t *testing.T) {
	server, _ := newTestServer(t, &stubVerifier{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	server, _ := newTestServer(t, &stubVerifier{subject: "auth0|sub"})

	paths := []string{"/api/app", "/api/org", "/api/user/me", "/api/settings"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	server, _ := newTestServer(t, &stubVerifier{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/access/login/web", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAuthenticatedRequestFlowsThrough(t *testing.T) {
	server, mock := newTestServer(t, &stubVerifier{subject: "auth0|sub"})

	mock.ExpectQuery(`SELECT id FROM users WHERE auth0_id = \$1`).
		WithArgs("auth0|sub").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
	mock.ExpectQuery(`SELECT u.org_id, u.role_id, r.name`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"org_id", "role_id", "name",
			"can_edit", "can_view", "have_api_access", "have_billing_options",
			"have_webhook_access", "is_admin", "is_master",
		}).AddRow("org-1", "role-1", "Viewer", false, true, false, false, false, false, false))
	mock.ExpectQuery(`SELECT id, org_id, name, description, metadata, created_at, updated_at FROM apps`).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "org_id", "name", "description", "metadata", "created_at", "updated_at",
		}).AddRow("app-1", "org-1", "backend", "", nil, time.Now(), time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/app", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
