package access

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/config"
)

func testHandlers() *Handlers {
	return NewHandlers(config.AuthConfig{
		IssuerURL:    "https://tenant.auth0.com",
		Audience:     "https://api.envsync.cloud",
		ClientID:     "web-client",
		ClientSecret: "secret",
		RedirectURL:  "https://app.envsync.cloud/callback",
		CLIClientID:  "cli-client",
	})
}

func TestWebLoginURL(t *testing.T) {
	router := mux.NewRouter()
	testHandlers().RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access/login/web", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	loginURL, err := url.Parse(body["url"])
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if loginURL.Host != "tenant.auth0.com" || loginURL.Path != "/authorize" {
		t.Errorf("url = %s", body["url"])
	}

	query := loginURL.Query()
	if query.Get("client_id") != "web-client" {
		t.Errorf("client_id = %q", query.Get("client_id"))
	}
	if query.Get("audience") != "https://api.envsync.cloud" {
		t.Errorf("audience = %q", query.Get("audience"))
	}
	if query.Get("state") == "" || query.Get("state") != body["state"] {
		t.Error("state mismatch between url and body")
	}
	if !strings.Contains(query.Get("scope"), "openid") {
		t.Errorf("scope = %q", query.Get("scope"))
	}
}

func TestCLITokenRequiresDeviceCode(t *testing.T) {
	router := mux.NewRouter()
	testHandlers().RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/access/login/cli/token",
		strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCallbackRequiresCode(t *testing.T) {
	router := mux.NewRouter()
	testHandlers().RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access/callback", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
