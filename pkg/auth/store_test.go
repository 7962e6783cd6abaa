package auth

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

func TestUserIDByAPIKey(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`SELECT id, user_id, is_active FROM api_keys WHERE key = \$1`).
		WithArgs("eVs_secret").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_active"}).
			AddRow("key-1", "user-1", true))
	mock.ExpectExec(`UPDATE api_keys SET last_used_at = NOW\(\) WHERE id = \$1`).
		WithArgs("key-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	userID, err := store.UserIDByAPIKey(context.Background(), "eVs_secret")
	if err != nil {
		t.Fatalf("UserIDByAPIKey: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want user-1", userID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("last_used_at must be recorded on match: %v", err)
	}
}

func TestUserIDByAPIKeyInactive(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`SELECT id, user_id, is_active FROM api_keys`).
		WithArgs("eVs_disabled").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_active"}).
			AddRow("key-2", "user-2", false))

	_, err = store.UserIDByAPIKey(context.Background(), "eVs_disabled")
	if !apperrors.IsAuthentication(err) {
		t.Errorf("inactive key must be rejected with authentication error, got %v", err)
	}
	// No last_used_at update for rejected keys.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserIDByAPIKeyUnknown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`SELECT id, user_id, is_active FROM api_keys`).
		WithArgs("eVs_nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_active"}))

	_, err = store.UserIDByAPIKey(context.Background(), "eVs_nope")
	if !apperrors.IsAuthentication(err) {
		t.Errorf("unknown key must be rejected with authentication error, got %v", err)
	}
}

func TestUserIDByExternalID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`SELECT id FROM users WHERE auth0_id = \$1`).
		WithArgs("auth0|abc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))

	userID, err := store.UserIDByExternalID(context.Background(), "auth0|abc")
	if err != nil {
		t.Fatalf("UserIDByExternalID: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q", userID)
	}

	mock.ExpectQuery(`SELECT id FROM users WHERE auth0_id = \$1`).
		WithArgs("auth0|ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.UserIDByExternalID(context.Background(), "auth0|ghost"); !apperrors.IsAuthentication(err) {
		t.Errorf("unknown subject must map to authentication error, got %v", err)
	}
}

func TestResolveAccess(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`SELECT u.org_id, u.role_id, r.name`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"org_id", "role_id", "name",
			"can_edit", "can_view", "have_api_access", "have_billing_options",
			"have_webhook_access", "is_admin", "is_master",
		}).AddRow("org-1", "role-1", "Developer", true, true, true, false, false, false, false))

	authCtx, err := store.ResolveAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResolveAccess: %v", err)
	}
	if authCtx.OrgID != "org-1" || authCtx.RoleName != "Developer" {
		t.Errorf("unexpected context: %+v", authCtx)
	}
	if !authCtx.Perms.CanEdit || authCtx.Perms.IsAdmin {
		t.Errorf("unexpected snapshot: %+v", authCtx.Perms)
	}
}

func TestResolveAccessMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(`SELECT u.org_id, u.role_id, r.name`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"org_id"}))

	if _, err := store.ResolveAccess(context.Background(), "gone"); !apperrors.IsAuthentication(err) {
		t.Errorf("deleted user must fail authentication, got %v", err)
	}
}
