// Package apps manages applications, the container every environment
// variable hangs off.
package apps

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

// App is an application row
type App struct {
	ID          string                 `json:"id"`
	OrgID       string                 `json:"org_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// CreateAppRequest is the payload for creating an app
type CreateAppRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateAppRequest is a partial app update
type UpdateAppRequest struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

const appColumns = `id, org_id, name, description, metadata, created_at, updated_at`

// Store persists apps in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates an app store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanApp(row interface{ Scan(...interface{}) error }) (*App, error) {
	app := &App{}
	var metadata []byte
	err := row.Scan(
		&app.ID, &app.OrgID, &app.Name, &app.Description, &metadata,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &app.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode app metadata: %w", err)
		}
	}
	return app, nil
}

func marshalMetadata(metadata map[string]interface{}) (interface{}, error) {
	if metadata == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode app metadata: %w", err)
	}
	return encoded, nil
}

// GetApp fetches an app scoped to an org
func (s *Store) GetApp(ctx context.Context, orgID, appID string) (*App, error) {
	query := fmt.Sprintf(`SELECT %s FROM apps WHERE id = $1 AND org_id = $2`, appColumns)
	app, err := scanApp(s.db.QueryRowContext(ctx, query, appID, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("application not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// ListApps returns all apps in an org
func (s *Store) ListApps(ctx context.Context, orgID string) ([]*App, error) {
	query := fmt.Sprintf(`SELECT %s FROM apps WHERE org_id = $1 ORDER BY created_at`, appColumns)
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]*App, 0)
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// CreateApp inserts an app
func (s *Store) CreateApp(ctx context.Context, orgID string, req CreateAppRequest) (*App, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("application name is required")
	}
	metadata, err := marshalMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO apps (id, org_id, name, description, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, appColumns)

	app, err := scanApp(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), orgID, req.Name, req.Description, metadata))
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// UpdateApp applies a partial update
func (s *Store) UpdateApp(ctx context.Context, orgID, appID string, req UpdateAppRequest) (*App, error) {
	current, err := s.GetApp(ctx, orgID, appID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Description != nil {
		current.Description = *req.Description
	}
	if req.Metadata != nil {
		current.Metadata = req.Metadata
	}
	metadata, err := marshalMetadata(current.Metadata)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE apps
		SET name = $1, description = $2, metadata = $3, updated_at = NOW()
		WHERE id = $4 AND org_id = $5
		RETURNING %s`, appColumns)

	updated, err := scanApp(s.db.QueryRowContext(ctx, query,
		current.Name, current.Description, metadata, appID, orgID))
	if err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}
	return updated, nil
}

// DeleteApp removes an app; env variables under it cascade in the schema
func (s *Store) DeleteApp(ctx context.Context, orgID, appID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM apps WHERE id = $1 AND org_id = $2`, appID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("application not found")
	}
	return nil
}
