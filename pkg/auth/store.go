package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

// Store runs the identity queries behind credential validation and role
// resolution. It reads the users, api_keys and org_roles tables directly so
// the hot path stays a handful of indexed lookups.
type Store struct {
	db *sql.DB
}

// NewStore creates an identity store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UserIDByExternalID maps a verified token subject to an internal user id
func (s *Store) UserIDByExternalID(ctx context.Context, externalID string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE auth0_id = $1`, externalID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", apperrors.Authentication("unknown user")
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user by external id: %w", err)
	}
	return userID, nil
}

// UserIDByAPIKey matches the presented secret exactly. Inactive keys are
// rejected. A successful match records last_used_at as a side effect.
func (s *Store) UserIDByAPIKey(ctx context.Context, secret string) (string, error) {
	var userID, keyID string
	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, is_active FROM api_keys WHERE key = $1`, secret).
		Scan(&keyID, &userID, &active)
	if err == sql.ErrNoRows {
		return "", apperrors.Authentication("invalid API key")
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up API key: %w", err)
	}
	if !active {
		return "", apperrors.Authentication("API key is inactive")
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, keyID); err != nil {
		return "", fmt.Errorf("failed to record API key usage: %w", err)
	}
	return userID, nil
}

// ResolveAccess turns a user id into a full auth context by joining the
// user's role. Runs fresh on every request.
func (s *Store) ResolveAccess(ctx context.Context, userID string) (*Context, error) {
	authCtx := &Context{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT u.org_id, u.role_id, r.name,
			r.can_edit, r.can_view, r.have_api_access, r.have_billing_options,
			r.have_webhook_access, r.is_admin, r.is_master
		FROM users u
		JOIN org_roles r ON r.id = u.role_id
		WHERE u.id = $1`, userID).
		Scan(
			&authCtx.OrgID, &authCtx.RoleID, &authCtx.RoleName,
			&authCtx.Perms.CanEdit, &authCtx.Perms.CanView,
			&authCtx.Perms.HaveAPIAccess, &authCtx.Perms.HaveBillingOptions,
			&authCtx.Perms.HaveWebhookAccess, &authCtx.Perms.IsAdmin, &authCtx.Perms.IsMaster,
		)
	if err == sql.ErrNoRows {
		return nil, apperrors.Authentication("user no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access: %w", err)
	}
	return authCtx, nil
}
