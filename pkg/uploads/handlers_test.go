package uploads

import (
	"bytes"
	"context"
	"mime/multipart"
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

type fakeObjectStore struct {
	putKey  string
	content []byte
}

func (f *fakeObjectStore) Put(_ context.Context, orgID string, content []byte, _ string) (string, error) {
	f.content = content
	f.putKey = "uploads/" + orgID + "/ab/cdef"
	return f.putKey, nil
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte(content))
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUpload(t *testing.T) {
	store := &fakeObjectStore{}
	router := mux.NewRouter()
	NewHandlers(store, audit.NopRecorder{}).RegisterRoutes(router)

	body, contentType := multipartBody(t, "file", "logo.png", "png-bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	authCtx := &auth.Context{UserID: "user-1", OrgID: "org-1", Perms: rbac.PermissionSnapshot{CanEdit: true}}
	req = req.WithContext(contextkeys.WithAuth(req.Context(), authCtx))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if string(store.content) != "png-bytes" {
		t.Errorf("stored content = %q", store.content)
	}
	if !strings.Contains(rec.Body.String(), store.putKey) {
		t.Errorf("body missing key: %s", rec.Body.String())
	}
}

func TestUploadMissingFile(t *testing.T) {
	router := mux.NewRouter()
	NewHandlers(&fakeObjectStore{}, audit.NopRecorder{}).RegisterRoutes(router)

	body, contentType := multipartBody(t, "other", "logo.png", "png-bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	authCtx := &auth.Context{UserID: "user-1", OrgID: "org-1", Perms: rbac.PermissionSnapshot{CanEdit: true}}
	req = req.WithContext(contextkeys.WithAuth(req.Context(), authCtx))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
