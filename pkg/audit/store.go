package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DBStore persists audit entries in the append-only audit_logs table
type DBStore struct {
	db *sql.DB
}

// NewDBStore creates an audit store
func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{db: db}
}

// Insert appends one entry
func (s *DBStore) Insert(ctx context.Context, entry Entry) error {
	var detailsJSON []byte
	var err error
	if entry.Details != nil {
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, org_id, user_id, action, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.OrgID, entry.UserID, entry.Action, entry.Message, detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// List returns one page of an org's entries, newest first
func (s *DBStore) List(ctx context.Context, orgID string, page, perPage int) (*Page, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE org_id = $1`, orgID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, user_id, action, message, details, created_at
		FROM audit_logs
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		orgID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		var detailsJSON []byte
		if err := rows.Scan(&entry.ID, &entry.OrgID, &entry.UserID,
			&entry.Action, &entry.Message, &detailsJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	totalPages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		totalPages++
	}

	return &Page{
		Entries:    entries,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// DeleteOlderThan removes entries created before the cutoff and returns the
// number deleted
func (s *DBStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete aged audit logs: %w", err)
	}
	return result.RowsAffected()
}
