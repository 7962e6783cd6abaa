package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orgs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSchemaCarriesInvariantIndexes(t *testing.T) {
	for _, idx := range []string{
		"idx_env_store_scope_key ON env_store(org_id, app_id, env_type_id, key)",
		"idx_org_roles_single_master ON org_roles(org_id) WHERE is_master",
		"idx_orgs_slug ON orgs(slug)",
		"idx_api_keys_key ON api_keys(key)",
	} {
		if !strings.Contains(schema, idx) {
			t.Errorf("schema missing index: %s", idx)
		}
	}
}
