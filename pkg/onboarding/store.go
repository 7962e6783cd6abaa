package onboarding

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

const orgInviteColumns = `id, email, invite_token, accepted, org_data, created_at, updated_at`
const userInviteColumns = `id, org_id, email, role_id, invite_token, accepted, created_at, updated_at`

// Store persists invites in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates an invite store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanOrgInvite(row interface{ Scan(...interface{}) error }) (*OrgInvite, error) {
	invite := &OrgInvite{}
	var orgData []byte
	err := row.Scan(
		&invite.ID, &invite.Email, &invite.Token, &invite.Accepted, &orgData,
		&invite.CreatedAt, &invite.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(orgData) > 0 {
		if err := json.Unmarshal(orgData, &invite.OrgData); err != nil {
			return nil, fmt.Errorf("failed to decode invite org data: %w", err)
		}
	}
	return invite, nil
}

func scanUserInvite(row interface{ Scan(...interface{}) error }) (*UserInvite, error) {
	invite := &UserInvite{}
	err := row.Scan(
		&invite.ID, &invite.OrgID, &invite.Email, &invite.RoleID,
		&invite.Token, &invite.Accepted,
		&invite.CreatedAt, &invite.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// CreateOrgInvite records a pending org signup with a fresh token
func (s *Store) CreateOrgInvite(ctx context.Context, email string) (*OrgInvite, error) {
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}

	query := fmt.Sprintf(`
		INSERT INTO org_invites (id, email, invite_token)
		VALUES ($1, $2, $3)
		RETURNING %s`, orgInviteColumns)

	invite, err := scanOrgInvite(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), email, uuid.NewString()))
	if err != nil {
		return nil, fmt.Errorf("failed to create org invite: %w", err)
	}
	return invite, nil
}

// GetOrgInviteByToken looks up a pending org signup
func (s *Store) GetOrgInviteByToken(ctx context.Context, token string) (*OrgInvite, error) {
	query := fmt.Sprintf(`SELECT %s FROM org_invites WHERE invite_token = $1`, orgInviteColumns)
	invite, err := scanOrgInvite(s.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("invite not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get org invite: %w", err)
	}
	return invite, nil
}

// MarkOrgInviteAccepted flips the invite and records what was created.
// The WHERE clause makes acceptance single-shot under races.
func (s *Store) MarkOrgInviteAccepted(ctx context.Context, inviteID string, orgData map[string]interface{}) error {
	encoded, err := json.Marshal(orgData)
	if err != nil {
		return fmt.Errorf("failed to encode invite org data: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE org_invites
		SET accepted = TRUE, org_data = $1, updated_at = NOW()
		WHERE id = $2 AND accepted = FALSE`, encoded, inviteID)
	if err != nil {
		return fmt.Errorf("failed to mark org invite accepted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.Conflict("invite has already been accepted")
	}
	return nil
}

// CreateUserInvite records a pending member addition
func (s *Store) CreateUserInvite(ctx context.Context, orgID string, req CreateUserInviteRequest) (*UserInvite, error) {
	if req.Email == "" {
		return nil, apperrors.Validation("email is required")
	}
	if req.RoleID == "" {
		return nil, apperrors.Validation("role_id is required")
	}

	query := fmt.Sprintf(`
		INSERT INTO user_invites (id, org_id, email, role_id, invite_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, userInviteColumns)

	invite, err := scanUserInvite(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), orgID, req.Email, req.RoleID, uuid.NewString()))
	if err != nil {
		return nil, fmt.Errorf("failed to create user invite: %w", err)
	}
	return invite, nil
}

// ListUserInvites returns an org's pending and accepted invites
func (s *Store) ListUserInvites(ctx context.Context, orgID string) ([]*UserInvite, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM user_invites WHERE org_id = $1 ORDER BY created_at DESC`, userInviteColumns)
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user invites: %w", err)
	}
	defer rows.Close()

	invites := make([]*UserInvite, 0)
	for rows.Next() {
		invite, err := scanUserInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user invite: %w", err)
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

// GetUserInviteByToken looks up a pending member invite
func (s *Store) GetUserInviteByToken(ctx context.Context, token string) (*UserInvite, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_invites WHERE invite_token = $1`, userInviteColumns)
	invite, err := scanUserInvite(s.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("invite not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user invite: %w", err)
	}
	return invite, nil
}

// UpdateUserInvite edits a pending invite's role
func (s *Store) UpdateUserInvite(ctx context.Context, orgID, inviteID string, req UpdateUserInviteRequest) (*UserInvite, error) {
	if req.RoleID == nil {
		return nil, apperrors.Validation("role_id is required")
	}

	query := fmt.Sprintf(`
		UPDATE user_invites
		SET role_id = $1, updated_at = NOW()
		WHERE id = $2 AND org_id = $3 AND accepted = FALSE
		RETURNING %s`, userInviteColumns)

	invite, err := scanUserInvite(s.db.QueryRowContext(ctx, query, *req.RoleID, inviteID, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("pending invite not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user invite: %w", err)
	}
	return invite, nil
}

// DeleteUserInvite withdraws an invite
func (s *Store) DeleteUserInvite(ctx context.Context, orgID, inviteID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM user_invites WHERE id = $1 AND org_id = $2`, inviteID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete user invite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("invite not found")
	}
	return nil
}

// MarkUserInviteAccepted flips the invite, single-shot
func (s *Store) MarkUserInviteAccepted(ctx context.Context, inviteID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_invites
		SET accepted = TRUE, updated_at = NOW()
		WHERE id = $1 AND accepted = FALSE`, inviteID)
	if err != nil {
		return fmt.Errorf("failed to mark user invite accepted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.Conflict("invite has already been accepted")
	}
	return nil
}
