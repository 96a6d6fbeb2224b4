package devicegrants

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

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

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+device_grants\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`

	mock.ExpectExec(q).
		WithArgs("dc1", "ABCD-1234", "laptop", "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grant := &models.DeviceGrant{
		DeviceCode: "dc1",
		UserCode:   "ABCD-1234",
		DeviceName: "laptop",
		Status:     models.GrantPending,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}
	if err := repo.Create(context.Background(), grant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByDeviceCode_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT\s+device_code,.*FROM\s+device_grants\s+WHERE\s+device_code\s*=\s*\$1`

	expires := time.Now().Add(5 * time.Minute)
	mock.ExpectQuery(q).
		WithArgs("dc1").
		WillReturnRows(sqlmock.NewRows([]string{"device_code", "user_code", "device_name", "user_id", "status", "expires_at"}).
			AddRow("dc1", "ABCD-1234", "laptop", "u1", "approved", expires))

	got, err := repo.FindByDeviceCode(context.Background(), "dc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.GrantApproved || got.UserID != "u1" {
		t.Fatalf("unexpected grant: %+v", got)
	}
}

func TestFindByUserCode_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+device_grants\s+WHERE\s+user_code`).
		WithArgs("NOPE-0000").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserCode(context.Background(), "NOPE-0000")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestSetStatus_ApprovesPendingOnly(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+device_grants\s+SET\s+status\s*=\s*\$2,.*WHERE\s+user_code\s*=\s*\$1\s+AND\s+status\s*=\s*'pending'\s*$`

	mock.ExpectExec(q).
		WithArgs("ABCD-1234", "approved", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetStatus(context.Background(), "ABCD-1234", models.GrantApproved, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetStatus_AlreadyDecided(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+device_grants`).
		WithArgs("ABCD-1234", "denied", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStatus(context.Background(), "ABCD-1234", models.GrantDenied, "")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound for decided grant, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+device_grants\s+WHERE\s+device_code\s*=\s*\$1`).
		WithArgs("dc1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "dc1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
