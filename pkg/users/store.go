package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/storage"
)

const userColumns = `id, org_id, role_id, auth0_id, email, name, profile_picture_url, created_at, updated_at`

// Store persists users in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.OrgID, &user.RoleID, &user.ExternalID,
		&user.Email, &user.Name, &user.ProfilePictureURL,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser fetches a user scoped to an org
func (s *Store) GetUser(ctx context.Context, orgID, userID string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND org_id = $2`, userColumns)
	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all members of an org
func (s *Store) ListUsers(ctx context.Context, orgID string) ([]*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE org_id = $1 ORDER BY created_at`, userColumns)
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser inserts a user. Used by onboarding when invites are accepted.
func (s *Store) CreateUser(ctx context.Context, orgID, roleID, externalID, email, name string) (*User, error) {
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}

	query := fmt.Sprintf(`
		INSERT INTO users (id, org_id, role_id, auth0_id, email, name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, userColumns)

	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), orgID, roleID, externalID, email, name))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a user with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial profile update to a user
func (s *Store) UpdateProfile(ctx context.Context, orgID, userID string, req UpdateProfileRequest) (*User, error) {
	current, err := s.GetUser(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.ProfilePictureURL != nil {
		current.ProfilePictureURL = *req.ProfilePictureURL
	}

	query := fmt.Sprintf(`
		UPDATE users
		SET name = $1, profile_picture_url = $2, updated_at = NOW()
		WHERE id = $3 AND org_id = $4
		RETURNING %s`, userColumns)

	updated, err := scanUser(s.db.QueryRowContext(ctx, query,
		current.Name, current.ProfilePictureURL, userID, orgID))
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

// UpdateRole reassigns a user's role. The role must belong to the same org;
// the subquery makes the check and the update one statement.
func (s *Store) UpdateRole(ctx context.Context, orgID, userID, roleID string) (*User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET role_id = $1, updated_at = NOW()
		WHERE id = $2 AND org_id = $3
			AND EXISTS (SELECT 1 FROM org_roles WHERE id = $1 AND org_id = $3)
		RETURNING %s`, userColumns)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, roleID, userID, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user or role not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user from the org
func (s *Store) DeleteUser(ctx context.Context, orgID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1 AND org_id = $2`, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}
