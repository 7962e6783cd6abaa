package envs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/storage"
)

const envColumns = `id, org_id, app_id, env_type_id, key, value, created_at, updated_at`

// Store persists environment variables in PostgreSQL. The composite unique
// index on (org_id, app_id, env_type_id, key) is the source of truth for
// duplicates; pre-checks only produce friendlier errors.
type Store struct {
	db *sql.DB
}

// NewStore creates an env variable store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanEnv(row interface{ Scan(...interface{}) error }) (*EnvVar, error) {
	env := &EnvVar{}
	err := row.Scan(
		&env.ID, &env.OrgID, &env.AppID, &env.EnvTypeID, &env.Key, &env.Value,
		&env.CreatedAt, &env.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// Get fetches one variable by key within a scope
func (s *Store) Get(ctx context.Context, orgID, appID, envTypeID, key string) (*EnvVar, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM env_store
		WHERE org_id = $1 AND app_id = $2 AND env_type_id = $3 AND key = $4`, envColumns)
	env, err := scanEnv(s.db.QueryRowContext(ctx, query, orgID, appID, envTypeID, key))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("environment variable not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get environment variable: %w", err)
	}
	return env, nil
}

// List returns all variables in a scope
func (s *Store) List(ctx context.Context, orgID, appID, envTypeID string) ([]*EnvVar, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM env_store
		WHERE org_id = $1 AND app_id = $2 AND env_type_id = $3
		ORDER BY key`, envColumns)
	rows, err := s.db.QueryContext(ctx, query, orgID, appID, envTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list environment variables: %w", err)
	}
	defer rows.Close()

	envs := make([]*EnvVar, 0)
	for rows.Next() {
		env, err := scanEnv(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan environment variable: %w", err)
		}
		envs = append(envs, env)
	}
	return envs, rows.Err()
}

// Create inserts one variable. An existing key in the same scope is a
// conflict, checked first for a friendly error and backed by the unique
// index for the race.
func (s *Store) Create(ctx context.Context, orgID string, req CreateEnvRequest) (*EnvVar, error) {
	if req.Key == "" {
		return nil, apperrors.Validation("environment variable key is required")
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM env_store
			WHERE org_id = $1 AND app_id = $2 AND env_type_id = $3 AND key = $4)`,
		orgID, req.AppID, req.EnvTypeID, req.Key).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check environment variable: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("Environment variable already exists")
	}

	query := fmt.Sprintf(`
		INSERT INTO env_store (id, org_id, app_id, env_type_id, key, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, envColumns)

	env, err := scanEnv(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), orgID, req.AppID, req.EnvTypeID, req.Key, req.Value))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("Environment variable already exists")
		}
		return nil, fmt.Errorf("failed to create environment variable: %w", err)
	}
	return env, nil
}

// Update sets a variable's value by key within a scope
func (s *Store) Update(ctx context.Context, orgID string, req UpdateEnvRequest) (*EnvVar, error) {
	query := fmt.Sprintf(`
		UPDATE env_store
		SET value = $1, updated_at = NOW()
		WHERE org_id = $2 AND app_id = $3 AND env_type_id = $4 AND key = $5
		RETURNING %s`, envColumns)

	env, err := scanEnv(s.db.QueryRowContext(ctx, query,
		req.Value, orgID, req.AppID, req.EnvTypeID, req.Key))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("environment variable not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update environment variable: %w", err)
	}
	return env, nil
}

// Delete removes a variable by key within a scope
func (s *Store) Delete(ctx context.Context, orgID, appID, envTypeID, key string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM env_store
		WHERE org_id = $1 AND app_id = $2 AND env_type_id = $3 AND key = $4`,
		orgID, appID, envTypeID, key)
	if err != nil {
		return fmt.Errorf("failed to delete environment variable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("environment variable not found")
	}
	return nil
}

// BatchCreate inserts several variables in one transaction. Any duplicate
// aborts the whole batch; partial writes never land.
func (s *Store) BatchCreate(ctx context.Context, orgID string, req BatchRequest) ([]*EnvVar, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO env_store (id, org_id, app_id, env_type_id, key, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, envColumns)

	created := make([]*EnvVar, 0, len(req.Envs))
	for _, kv := range req.Envs {
		if kv.Key == "" {
			return nil, apperrors.Validation("environment variable key is required")
		}
		env, err := scanEnv(tx.QueryRowContext(ctx, query,
			uuid.NewString(), orgID, req.AppID, req.EnvTypeID, kv.Key, kv.Value))
		if err != nil {
			if storage.IsUniqueViolation(err) {
				return nil, apperrors.Conflict("Environment variable already exists")
			}
			return nil, fmt.Errorf("failed to create environment variable %q: %w", kv.Key, err)
		}
		created = append(created, env)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch create: %w", err)
	}
	return created, nil
}

// BatchUpdate upserts several variables in one transaction. Unlike
// BatchCreate, existing keys are overwritten.
func (s *Store) BatchUpdate(ctx context.Context, orgID string, req BatchRequest) ([]*EnvVar, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO env_store (id, org_id, app_id, env_type_id, key, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (org_id, app_id, env_type_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING %s`, envColumns)

	updated := make([]*EnvVar, 0, len(req.Envs))
	for _, kv := range req.Envs {
		if kv.Key == "" {
			return nil, apperrors.Validation("environment variable key is required")
		}
		env, err := scanEnv(tx.QueryRowContext(ctx, query,
			uuid.NewString(), orgID, req.AppID, req.EnvTypeID, kv.Key, kv.Value))
		if err != nil {
			return nil, fmt.Errorf("failed to upsert environment variable %q: %w", kv.Key, err)
		}
		updated = append(updated, env)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch update: %w", err)
	}
	return updated, nil
}

// BatchDelete removes several keys from one scope
func (s *Store) BatchDelete(ctx context.Context, orgID string, req BatchDeleteRequest) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM env_store
		WHERE org_id = $1 AND app_id = $2 AND env_type_id = $3 AND key = ANY($4)`,
		orgID, req.AppID, req.EnvTypeID, pq.Array(req.Keys))
	if err != nil {
		return 0, fmt.Errorf("failed to batch delete environment variables: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// Summary counts variables per environment type for one app
func (s *Store) Summary(ctx context.Context, orgID, appID string) ([]ScopeSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(e.id)
		FROM env_types t
		LEFT JOIN env_store e ON e.env_type_id = t.id AND e.app_id = $2
		WHERE t.org_id = $1
		GROUP BY t.id, t.name
		ORDER BY t.name`, orgID, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize environment variables: %w", err)
	}
	defer rows.Close()

	summaries := make([]ScopeSummary, 0)
	for rows.Next() {
		var summary ScopeSummary
		if err := rows.Scan(&summary.EnvTypeID, &summary.EnvTypeName, &summary.Count); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
