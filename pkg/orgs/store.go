package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/cache"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/storage"
)

const orgColumns = `id, name, slug, logo_url, website, size, created_at, updated_at`

// slugCacheTTL bounds how long a slug-exists probe can serve a stale answer.
const slugCacheTTL = 5 * time.Minute

// Store persists organizations. Slug probes go through the cache; org rows
// themselves are always read fresh.
type Store struct {
	db      *sql.DB
	cache   cache.Cache
	metrics *observability.Metrics
}

// NewStore creates an org store
func NewStore(db *sql.DB, c cache.Cache, metrics *observability.Metrics) *Store {
	return &Store{db: db, cache: c, metrics: metrics}
}

func scanOrg(row interface{ Scan(...interface{}) error }) (*Org, error) {
	org := &Org{}
	err := row.Scan(
		&org.ID, &org.Name, &org.Slug, &org.LogoURL, &org.Website, &org.Size,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return org, nil
}

// GetOrg fetches an org by id
func (s *Store) GetOrg(ctx context.Context, orgID string) (*Org, error) {
	query := fmt.Sprintf(`SELECT %s FROM orgs WHERE id = $1`, orgColumns)
	org, err := scanOrg(s.db.QueryRowContext(ctx, query, orgID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("organization not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// CreateOrg inserts an org. Used by onboarding when an org invite is
// accepted.
func (s *Store) CreateOrg(ctx context.Context, name, slug string) (*Org, error) {
	if name == "" {
		return nil, apperrors.Validation("organization name is required")
	}
	if slug == "" {
		return nil, apperrors.Validation("organization slug is required")
	}

	query := fmt.Sprintf(`
		INSERT INTO orgs (id, name, slug)
		VALUES ($1, $2, $3)
		RETURNING %s`, orgColumns)

	org, err := scanOrg(s.db.QueryRowContext(ctx, query, uuid.NewString(), name, slug))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("organization slug is already taken")
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

// UpdateOrg applies a partial profile update. A slug change checks
// availability first; the unique index backs the check.
func (s *Store) UpdateOrg(ctx context.Context, orgID string, req UpdateOrgRequest) (*Org, error) {
	current, err := s.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if req.Slug != nil && *req.Slug != current.Slug {
		taken, err := s.SlugExists(ctx, *req.Slug)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.Conflict("organization slug is already taken")
		}
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Slug != nil {
		current.Slug = *req.Slug
	}
	if req.LogoURL != nil {
		current.LogoURL = *req.LogoURL
	}
	if req.Website != nil {
		current.Website = *req.Website
	}
	if req.Size != nil {
		current.Size = *req.Size
	}

	query := fmt.Sprintf(`
		UPDATE orgs
		SET name = $1, slug = $2, logo_url = $3, website = $4, size = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING %s`, orgColumns)

	updated, err := scanOrg(s.db.QueryRowContext(ctx, query,
		current.Name, current.Slug, current.LogoURL, current.Website, current.Size, orgID))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("organization slug is already taken")
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	// A slug change invalidates the cached probe for the old value.
	if s.cache != nil && req.Slug != nil {
		s.cache.Delete(ctx, slugCacheKey(current.Slug))
	}
	return updated, nil
}

func slugCacheKey(slug string) string {
	return "org_slug:" + slug
}

// SlugExists reports whether any org holds the slug. Positive and negative
// answers are cached briefly; onboarding uses this as a pre-flight check.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	key := slugCacheKey(slug)
	if s.cache != nil {
		if value, found, err := s.cache.Get(ctx, key); err == nil && found {
			if s.metrics != nil {
				s.metrics.CacheHits.WithLabelValues("org_slug").Inc()
			}
			return string(value) == "1", nil
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.WithLabelValues("org_slug").Inc()
		}
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orgs WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}

	if s.cache != nil {
		value := []byte("0")
		if exists {
			value = []byte("1")
		}
		s.cache.Set(ctx, key, value, slugCacheTTL)
	}
	return exists, nil
}
