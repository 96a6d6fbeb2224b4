package conflicts

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+conflicts\s*\(user_id,\s*local_task,\s*remote_task\)`).
		WithArgs("u1", []byte(`{"id":"t1"}`), []byte(`{"id":"t1","text":"x"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Conflict{
		UserID: "u1",
		Local:  []byte(`{"id":"t1"}`),
		Remote: []byte(`{"id":"t1","text":"x"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTakeForUser_DrainsQueue(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)DELETE\s+FROM\s+conflicts\s+WHERE\s+user_id\s*=\s*\$1\s+RETURNING\s+id,\s*local_task,\s*remote_task`

	mock.ExpectQuery(q).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "local_task", "remote_task"}).
			AddRow("c1", []byte(`{}`), []byte(`{}`)))

	got, err := repo.TakeForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("unexpected conflicts: %+v", got)
	}
}
