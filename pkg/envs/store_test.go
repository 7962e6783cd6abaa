package envs

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

// The EXISTS pre-check can race a concurrent insert; the unique index
// turns the losing insert into the same conflict error.
func TestCreateRaceMapsUniqueViolation(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("org-1", "app-1", "et-dev", "K").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO env_store`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_env_store_scope_key"})

	_, err := store.Create(context.Background(), "org-1", CreateEnvRequest{
		AppID: "app-1", EnvTypeID: "et-dev", Key: "K", Value: "v",
	})
	if !apperrors.IsConflict(err) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestBatchCreateRollsBackOnDuplicate(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO env_store`).
		WithArgs(sqlmock.AnyArg(), "org-1", "app-1", "et-dev", "A", "1").
		WillReturnRows(envRow("A", "1"))
	mock.ExpectQuery(`INSERT INTO env_store`).
		WithArgs(sqlmock.AnyArg(), "org-1", "app-1", "et-dev", "B", "2").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := store.BatchCreate(context.Background(), "org-1", BatchRequest{
		AppID: "app-1", EnvTypeID: "et-dev",
		Envs: []KeyValue{{Key: "A", Value: "1"}, {Key: "B", Value: "2"}},
	})
	if !apperrors.IsConflict(err) {
		t.Errorf("err = %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBatchUpdateUpserts(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO env_store`).
		WithArgs(sqlmock.AnyArg(), "org-1", "app-1", "et-dev", "A", "changed").
		WillReturnRows(envRow("A", "changed"))
	mock.ExpectCommit()

	updated, err := store.BatchUpdate(context.Background(), "org-1", BatchRequest{
		AppID: "app-1", EnvTypeID: "et-dev",
		Envs: []KeyValue{{Key: "A", Value: "changed"}},
	})
	if err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	if len(updated) != 1 || updated[0].Value != "changed" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestBatchDelete(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec(`DELETE FROM env_store`).
		WithArgs("org-1", "app-1", "et-dev", pq.Array([]string{"A", "B"})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := store.BatchDelete(context.Background(), "org-1", BatchDeleteRequest{
		AppID: "app-1", EnvTypeID: "et-dev", Keys: []string{"A", "B"},
	})
	if err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
}

func TestDeleteMissingKeyNotFound(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec(`DELETE FROM env_store`).
		WithArgs("org-1", "app-1", "et-dev", "GHOST").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "org-1", "app-1", "et-dev", "GHOST")
	if !apperrors.IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestSummary(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery(`SELECT t\.id, t\.name, COUNT\(e\.id\)`).
		WithArgs("org-1", "app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "count"}).
			AddRow("et-dev", "Development", 12).
			AddRow("et-prod", "Production", 9))

	summaries, err := store.Summary(context.Background(), "org-1", "app-1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summaries) != 2 || summaries[1].Count != 9 {
		t.Errorf("summaries = %+v", summaries)
	}
}
