package todos

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/dmitrijs2005/synclist/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func todoRows(todos ...models.Todo) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "workspace_id", "text", "completed", "created_at", "updated_at"})
	for _, t := range todos {
		rows.AddRow(t.ID, t.WorkspaceID, t.Text, t.Completed, t.CreatedAt, t.UpdatedAt)
	}
	return rows
}

func TestListWorkspace(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT\s+id,.*FROM\s+todos\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+workspace_id\s*=\s*\$2\s+ORDER\s+BY\s+created_at`

	mock.ExpectQuery(q).
		WithArgs("u1", "ws1").
		WillReturnRows(todoRows(
			models.Todo{ID: "t1", WorkspaceID: "ws1", Text: "first", CreatedAt: 1, UpdatedAt: 1},
			models.Todo{ID: "t2", WorkspaceID: "ws1", Text: "second", Completed: true, CreatedAt: 2, UpdatedAt: 3},
		))

	got, err := repo.ListWorkspace(context.Background(), "u1", "ws1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t1" || !got[1].Completed {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if got[0].UserID != "u1" {
		t.Fatalf("owner not set: %+v", got[0])
	}
}

func TestListUnassigned_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+todos\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+workspace_id\s*=\s*''`).
		WithArgs("u1").
		WillReturnRows(todoRows())

	got, err := repo.ListUnassigned(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+todos\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).
		WithArgs("u1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u1", "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestReplaceWorkspace_DeletesThenInserts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+todos\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+workspace_id\s*=\s*\$2`).
		WithArgs("u1", "ws1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	ins := `(?s)INSERT\s+INTO\s+todos\s*\(id,\s*user_id,\s*workspace_id,\s*text,\s*completed,\s*created_at,\s*updated_at\)`
	mock.ExpectExec(ins).
		WithArgs("t1", "u1", "ws1", "first", false, int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(ins).
		WithArgs("t2", "u1", "ws1", "second", true, int64(2), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ReplaceWorkspace(context.Background(), "u1", "ws1", []models.Todo{
		{ID: "t1", Text: "first", CreatedAt: 1, UpdatedAt: 1},
		{ID: "t2", Text: "second", Completed: true, CreatedAt: 2, UpdatedAt: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAssignWorkspace(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+todos\s+SET\s+workspace_id\s*=\s*\$2\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+workspace_id\s*=\s*''`).
		WithArgs("u1", "ws1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.AssignWorkspace(context.Background(), "u1", "ws1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
