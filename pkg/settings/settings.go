// Package settings stores per-user preferences. A user without a row gets
// the defaults; the first update creates it.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
)

// Settings is a user's preference row
type Settings struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Theme              string    `json:"theme"`
	EmailNotifications bool      `json:"email_notifications"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UpdateSettingsRequest is a partial preference update
type UpdateSettingsRequest struct {
	Theme              *string `json:"theme,omitempty"`
	EmailNotifications *bool   `json:"email_notifications,omitempty"`
}

const settingsColumns = `id, user_id, theme, email_notifications, created_at, updated_at`

// Store persists settings in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a settings store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanSettings(row interface{ Scan(...interface{}) error }) (*Settings, error) {
	s := &Settings{}
	err := row.Scan(&s.ID, &s.UserID, &s.Theme, &s.EmailNotifications, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a user's settings, falling back to defaults when no row
// exists yet
func (s *Store) Get(ctx context.Context, userID string) (*Settings, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_settings WHERE user_id = $1`, settingsColumns)
	settings, err := scanSettings(s.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return &Settings{UserID: userID, Theme: "system", EmailNotifications: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// Update upserts a user's settings
func (s *Store) Update(ctx context.Context, userID string, req UpdateSettingsRequest) (*Settings, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Theme != nil {
		current.Theme = *req.Theme
	}
	if req.EmailNotifications != nil {
		current.EmailNotifications = *req.EmailNotifications
	}

	query := fmt.Sprintf(`
		INSERT INTO user_settings (id, user_id, theme, email_notifications)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET theme = EXCLUDED.theme,
			email_notifications = EXCLUDED.email_notifications,
			updated_at = NOW()
		RETURNING %s`, settingsColumns)

	updated, err := scanSettings(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), userID, current.Theme, current.EmailNotifications))
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return updated, nil
}

// Handlers serves the settings endpoints
type Handlers struct {
	store    *Store
	recorder audit.Recorder
}

// NewHandlers creates settings handlers
func NewHandlers(store *Store, recorder audit.Recorder) *Handlers {
	return &Handlers{store: store, recorder: recorder}
}

// RegisterRoutes registers settings routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/settings", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/settings", h.Update).Methods(http.MethodPut)
}

// Get returns the caller's settings
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	settings, err := h.store.Get(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, settings)
}

// Update modifies the caller's settings
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromRequest(r)

	var req UpdateSettingsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	settings, err := h.store.Update(r.Context(), authCtx.UserID, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		OrgID:   authCtx.OrgID,
		UserID:  authCtx.UserID,
		Action:  audit.ActionSettingsUpdated,
		Message: "User settings updated",
	})
	httputil.WriteSuccess(w, settings)
}
