package uploads

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// maxUploadBytes caps a single upload at 10 MiB
const maxUploadBytes = 10 << 20

// ObjectStore is the storage surface the upload handlers need
type ObjectStore interface {
	Put(ctx context.Context, orgID string, content []byte, contentType string) (string, error)
}

// Handlers serves the upload pass-through
type Handlers struct {
	store    ObjectStore
	recorder audit.Recorder
}

// NewHandlers creates upload handlers
func NewHandlers(store ObjectStore, recorder audit.Recorder) *Handlers {
	return &Handlers{store: store, recorder: recorder}
}

// RegisterRoutes registers upload routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
}

// Upload stores a multipart file and returns its object key
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)
	if err := rbac.Check(authCtx.Perms, rbac.CanEdit); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteValidationError(w, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteValidationError(w, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key, err := h.store.Put(r.Context(), authCtx.OrgID, content, contentType)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionFileUploaded,
		Message: "File uploaded",
		Details: map[string]interface{}{"key": key, "name": header.Filename, "size": len(content)},
	})
	httputil.WriteCreated(w, map[string]string{"key": key})
}
