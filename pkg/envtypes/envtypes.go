// Package envtypes manages environment types (Production, Staging, ...).
// The type name drives the production escalation rule, so protected types
// cannot be renamed or deleted.
package envtypes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// EnvType is an environment type row
type EnvType struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	AppID       string    `json:"app_id,omitempty"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	IsDefault   bool      `json:"is_default"`
	IsProtected bool      `json:"is_protected"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateEnvTypeRequest is the payload for creating an env type
type CreateEnvTypeRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	AppID string `json:"app_id,omitempty"`
}

// UpdateEnvTypeRequest is a partial env type update
type UpdateEnvTypeRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// DefaultEnvType describes one seeded type
type DefaultEnvType struct {
	Name        string
	Color       string
	IsProtected bool
}

// DefaultEnvTypes returns the set seeded for every new organization.
// Production is protected, which makes the escalation rule effective from
// day one.
func DefaultEnvTypes() []DefaultEnvType {
	return []DefaultEnvType{
		{Name: rbac.ProductionEnvName, Color: "#EF4444", IsProtected: true},
		{Name: "Staging", Color: "#F59E0B"},
		{Name: "Development", Color: "#22C55E"},
	}
}

const envTypeColumns = `id, org_id, COALESCE(app_id, ''), name, color, is_default, is_protected, created_at, updated_at`

// Store persists env types in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates an env type store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanEnvType(row interface{ Scan(...interface{}) error }) (*EnvType, error) {
	envType := &EnvType{}
	err := row.Scan(
		&envType.ID, &envType.OrgID, &envType.AppID, &envType.Name, &envType.Color,
		&envType.IsDefault, &envType.IsProtected,
		&envType.CreatedAt, &envType.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return envType, nil
}

// GetEnvType fetches an env type scoped to an org
func (s *Store) GetEnvType(ctx context.Context, orgID, envTypeID string) (*EnvType, error) {
	query := fmt.Sprintf(`SELECT %s FROM env_types WHERE id = $1 AND org_id = $2`, envTypeColumns)
	envType, err := scanEnvType(s.db.QueryRowContext(ctx, query, envTypeID, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("environment type not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get environment type: %w", err)
	}
	return envType, nil
}

// ListEnvTypes returns all env types in an org
func (s *Store) ListEnvTypes(ctx context.Context, orgID string) ([]*EnvType, error) {
	query := fmt.Sprintf(`SELECT %s FROM env_types WHERE org_id = $1 ORDER BY created_at`, envTypeColumns)
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list environment types: %w", err)
	}
	defer rows.Close()

	envTypes := make([]*EnvType, 0)
	for rows.Next() {
		envType, err := scanEnvType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan environment type: %w", err)
		}
		envTypes = append(envTypes, envType)
	}
	return envTypes, rows.Err()
}

// CreateEnvType inserts an env type
func (s *Store) CreateEnvType(ctx context.Context, orgID string, req CreateEnvTypeRequest) (*EnvType, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("environment type name is required")
	}

	var appID interface{}
	if req.AppID != "" {
		appID = req.AppID
	}

	query := fmt.Sprintf(`
		INSERT INTO env_types (id, org_id, app_id, name, color)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, envTypeColumns)

	envType, err := scanEnvType(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), orgID, appID, req.Name, req.Color))
	if err != nil {
		return nil, fmt.Errorf("failed to create environment type: %w", err)
	}
	return envType, nil
}

// Seed inserts the default env types for a new org
func (s *Store) Seed(ctx context.Context, orgID string) error {
	for _, def := range DefaultEnvTypes() {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO env_types (id, org_id, name, color, is_default, is_protected)
			VALUES ($1, $2, $3, $4, TRUE, $5)`,
			uuid.NewString(), orgID, def.Name, def.Color, def.IsProtected)
		if err != nil {
			return fmt.Errorf("failed to seed environment type %q: %w", def.Name, err)
		}
	}
	return nil
}

// UpdateEnvType applies a partial update. Protected types keep their name.
func (s *Store) UpdateEnvType(ctx context.Context, orgID, envTypeID string, req UpdateEnvTypeRequest) (*EnvType, error) {
	current, err := s.GetEnvType(ctx, orgID, envTypeID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil && current.IsProtected && *req.Name != current.Name {
		return nil, apperrors.Validation("protected environment types cannot be renamed")
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Color != nil {
		current.Color = *req.Color
	}

	query := fmt.Sprintf(`
		UPDATE env_types
		SET name = $1, color = $2, updated_at = NOW()
		WHERE id = $3 AND org_id = $4
		RETURNING %s`, envTypeColumns)

	updated, err := scanEnvType(s.db.QueryRowContext(ctx, query,
		current.Name, current.Color, envTypeID, orgID))
	if err != nil {
		return nil, fmt.Errorf("failed to update environment type: %w", err)
	}
	return updated, nil
}

// DeleteEnvType removes an env type. Protected types are refused.
func (s *Store) DeleteEnvType(ctx context.Context, orgID, envTypeID string) error {
	envType, err := s.GetEnvType(ctx, orgID, envTypeID)
	if err != nil {
		return err
	}
	if envType.IsProtected {
		return apperrors.Validation("protected environment types cannot be deleted")
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM env_types WHERE id = $1 AND org_id = $2`, envTypeID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete environment type: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("environment type not found")
	}
	return nil
}
