// Package apikeys issues and manages the API keys the CLI authenticates
// with. Secrets are returned in full exactly once, at create and
// regenerate; every other read masks them.
package apikeys

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/storage"
)

// KeyPrefix marks every secret this service issues
const KeyPrefix = "eVs_"

// maskVisible is how many trailing characters stay readable in a masked key
const maskVisible = 5

// APIKey is an API key row. Key holds the full secret only on the create
// and regenerate responses.
type APIKey struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	UserID      string     `json:"user_id"`
	Key         string     `json:"key"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateAPIKeyRequest is the payload for issuing a key
type CreateAPIKeyRequest struct {
	Description string `json:"description"`
}

// UpdateAPIKeyRequest toggles activity or edits the description
type UpdateAPIKeyRequest struct {
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// GenerateKey returns a fresh secret with the service prefix
func GenerateKey() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(raw), nil
}

// Mask hides a secret for display: every character becomes '*' except the
// last five.
func Mask(key string) string {
	if len(key) <= maskVisible {
		return key
	}
	return strings.Repeat("*", len(key)-maskVisible) + key[len(key)-maskVisible:]
}

const apiKeyColumns = `id, org_id, user_id, key, description, is_active, last_used_at, created_at, updated_at`

// Store persists API keys in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates an API key store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanAPIKey(row interface{ Scan(...interface{}) error }) (*APIKey, error) {
	apiKey := &APIKey{}
	err := row.Scan(
		&apiKey.ID, &apiKey.OrgID, &apiKey.UserID, &apiKey.Key,
		&apiKey.Description, &apiKey.IsActive, &apiKey.LastUsedAt,
		&apiKey.CreatedAt, &apiKey.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return apiKey, nil
}

// Create issues a key bound to the calling user
func (s *Store) Create(ctx context.Context, orgID, userID string, req CreateAPIKeyRequest) (*APIKey, error) {
	secret, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO api_keys (id, org_id, user_id, key, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, apiKeyColumns)

	apiKey, err := scanAPIKey(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), orgID, userID, secret, req.Description))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("api key collision, retry")
		}
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}
	return apiKey, nil
}

// Get fetches one key scoped to an org
func (s *Store) Get(ctx context.Context, orgID, keyID string) (*APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE id = $1 AND org_id = $2`, apiKeyColumns)
	apiKey, err := scanAPIKey(s.db.QueryRowContext(ctx, query, keyID, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("api key not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return apiKey, nil
}

// List returns all keys in an org
func (s *Store) List(ctx context.Context, orgID string) ([]*APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE org_id = $1 ORDER BY created_at`, apiKeyColumns)
	return s.queryKeys(ctx, query, orgID)
}

// ListByUser returns all keys one user holds
func (s *Store) ListByUser(ctx context.Context, orgID, userID string) ([]*APIKey, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM api_keys
		WHERE org_id = $1 AND user_id = $2
		ORDER BY created_at`, apiKeyColumns)
	return s.queryKeys(ctx, query, orgID, userID)
}

func (s *Store) queryKeys(ctx context.Context, query string, args ...interface{}) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*APIKey, 0)
	for rows.Next() {
		apiKey, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, apiKey)
	}
	return keys, rows.Err()
}

// Update edits the description or active flag
func (s *Store) Update(ctx context.Context, orgID, keyID string, req UpdateAPIKeyRequest) (*APIKey, error) {
	current, err := s.Get(ctx, orgID, keyID)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		current.Description = *req.Description
	}
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}

	query := fmt.Sprintf(`
		UPDATE api_keys
		SET description = $1, is_active = $2, updated_at = NOW()
		WHERE id = $3 AND org_id = $4
		RETURNING %s`, apiKeyColumns)

	updated, err := scanAPIKey(s.db.QueryRowContext(ctx, query,
		current.Description, current.IsActive, keyID, orgID))
	// The key can vanish between the read above and the update.
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("api key not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update api key: %w", err)
	}
	return updated, nil
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, orgID, keyID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE id = $1 AND org_id = $2`, keyID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("api key not found")
	}
	return nil
}

// Regenerate replaces the secret in place. The row keeps its id, user and
// org, so references and audit history stay intact.
func (s *Store) Regenerate(ctx context.Context, orgID, keyID string) (*APIKey, error) {
	secret, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE api_keys
		SET key = $1, last_used_at = NULL, updated_at = NOW()
		WHERE id = $2 AND org_id = $3
		RETURNING %s`, apiKeyColumns)

	apiKey, err := scanAPIKey(s.db.QueryRowContext(ctx, query, secret, keyID, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("api key not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate api key: %w", err)
	}
	return apiKey, nil
}
