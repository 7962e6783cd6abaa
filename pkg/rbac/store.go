package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/storage"
)

const roleColumns = `id, org_id, name, color,
	can_edit, can_view, have_api_access, have_billing_options, have_webhook_access,
	is_admin, is_master, created_at, updated_at`

// Store persists roles in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a role store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanRole(row interface{ Scan(...interface{}) error }) (*Role, error) {
	role := &Role{}
	err := row.Scan(
		&role.ID, &role.OrgID, &role.Name, &role.Color,
		&role.CanEdit, &role.CanView, &role.HaveAPIAccess,
		&role.HaveBillingOptions, &role.HaveWebhookAccess,
		&role.IsAdmin, &role.IsMaster,
		&role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return role, nil
}

// GetRoleByID fetches a role with no org filter. Used only by the request
// resolver, where the org comes from the user row holding the role.
func (s *Store) GetRoleByID(ctx context.Context, roleID string) (*Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM org_roles WHERE id = $1`, roleColumns)
	role, err := scanRole(s.db.QueryRowContext(ctx, query, roleID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("role not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// GetRole fetches a role scoped to an org
func (s *Store) GetRole(ctx context.Context, orgID, roleID string) (*Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM org_roles WHERE id = $1 AND org_id = $2`, roleColumns)
	role, err := scanRole(s.db.QueryRowContext(ctx, query, roleID, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("role not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// ListRoles returns all roles for an org
func (s *Store) ListRoles(ctx context.Context, orgID string) ([]*Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM org_roles WHERE org_id = $1 ORDER BY created_at`, roleColumns)
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CreateRole inserts a role. The partial unique index on (org_id) WHERE
// is_master guarantees at most one master per org; a violation surfaces as
// a conflict.
func (s *Store) CreateRole(ctx context.Context, orgID string, req CreateRoleRequest) (*Role, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("role name is required")
	}

	query := fmt.Sprintf(`
		INSERT INTO org_roles (id, org_id, name, color,
			can_edit, can_view, have_api_access, have_billing_options, have_webhook_access,
			is_admin, is_master)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s`, roleColumns)

	role, err := scanRole(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), orgID, req.Name, req.Color,
		req.CanEdit, req.CanView, req.HaveAPIAccess, req.HaveBillingOptions, req.HaveWebhookAccess,
		req.IsAdmin, req.IsMaster,
	))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("organization already has a master role")
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// UpdateRole applies a partial update. Any attempt to touch is_master fails
// validation before the database is consulted.
func (s *Store) UpdateRole(ctx context.Context, orgID, roleID string, req UpdateRoleRequest) (*Role, error) {
	if req.IsMaster != nil {
		return nil, apperrors.Validation("the master flag cannot be changed")
	}

	current, err := s.GetRole(ctx, orgID, roleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Color != nil {
		current.Color = *req.Color
	}
	if req.CanEdit != nil {
		current.CanEdit = *req.CanEdit
	}
	if req.CanView != nil {
		current.CanView = *req.CanView
	}
	if req.HaveAPIAccess != nil {
		current.HaveAPIAccess = *req.HaveAPIAccess
	}
	if req.HaveBillingOptions != nil {
		current.HaveBillingOptions = *req.HaveBillingOptions
	}
	if req.HaveWebhookAccess != nil {
		current.HaveWebhookAccess = *req.HaveWebhookAccess
	}
	if req.IsAdmin != nil {
		current.IsAdmin = *req.IsAdmin
	}

	query := fmt.Sprintf(`
		UPDATE org_roles
		SET name = $1, color = $2, can_edit = $3, can_view = $4,
			have_api_access = $5, have_billing_options = $6, have_webhook_access = $7,
			is_admin = $8, updated_at = NOW()
		WHERE id = $9 AND org_id = $10
		RETURNING %s`, roleColumns)

	updated, err := scanRole(s.db.QueryRowContext(ctx, query,
		current.Name, current.Color, current.CanEdit, current.CanView,
		current.HaveAPIAccess, current.HaveBillingOptions, current.HaveWebhookAccess,
		current.IsAdmin, roleID, orgID,
	))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("role not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return updated, nil
}

// DeleteRole removes a role. The master role is undeletable; the role is
// loaded org-scoped first so the decision precedes the mutation.
func (s *Store) DeleteRole(ctx context.Context, orgID, roleID string) error {
	role, err := s.GetRole(ctx, orgID, roleID)
	if err != nil {
		return err
	}
	if role.IsMaster {
		return apperrors.Validation("the master role cannot be deleted")
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM org_roles WHERE id = $1 AND org_id = $2`, roleID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("role not found")
	}
	return nil
}

// Stats returns each role in the org with the number of users holding it
func (s *Store) Stats(ctx context.Context, orgID string) ([]RoleStats, error) {
	query := `
		SELECT r.id, r.org_id, r.name, r.color,
			r.can_edit, r.can_view, r.have_api_access, r.have_billing_options, r.have_webhook_access,
			r.is_admin, r.is_master, r.created_at, r.updated_at,
			COUNT(u.id) AS user_count
		FROM org_roles r
		LEFT JOIN users u ON u.role_id = r.id
		WHERE r.org_id = $1
		GROUP BY r.id
		ORDER BY r.created_at`

	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role stats: %w", err)
	}
	defer rows.Close()

	stats := make([]RoleStats, 0)
	for rows.Next() {
		var entry RoleStats
		err := rows.Scan(
			&entry.Role.ID, &entry.Role.OrgID, &entry.Role.Name, &entry.Role.Color,
			&entry.Role.CanEdit, &entry.Role.CanView, &entry.Role.HaveAPIAccess,
			&entry.Role.HaveBillingOptions, &entry.Role.HaveWebhookAccess,
			&entry.Role.IsAdmin, &entry.Role.IsMaster,
			&entry.Role.CreatedAt, &entry.Role.UpdatedAt,
			&entry.UserCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role stats: %w", err)
		}
		stats = append(stats, entry)
	}
	return stats, rows.Err()
}
