package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"loadtracker.app/internal/auth"
	"loadtracker.app/internal/inventory"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewStore(db), mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations: %v", err)
		}
		db.Close()
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.CreateUser(context.Background(), auth.NewUser{
		Email:        "ops@example.com",
		PasswordHash: "hash",
		FullName:     "Ops",
		Status:       auth.UserStatusActive,
		RoleID:       "role-1",
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestCreateUserUnknownRole(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	_, err := store.CreateUser(context.Background(), auth.NewUser{
		Email:        "ops@example.com",
		PasswordHash: "hash",
		FullName:     "Ops",
		Status:       auth.UserStatusActive,
		RoleID:       "missing",
	})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("select(.|\n)+from users u").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUserByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRoleBlockedWhileReferenced(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("select count\\(\\*\\) from users where role_id").
		WithArgs("role-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	err := store.DeleteRole(context.Background(), "role-1")
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestDeleteRoleMissing(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("select count\\(\\*\\) from users where role_id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("delete from roles").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.DeleteRole(context.Background(), "ghost")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRolePermissionsInactiveRole(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("select id, is_active from roles").
		WithArgs("dispatcher").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active"}).AddRow("role-1", false))

	perms, err := store.RolePermissions(context.Background(), "dispatcher")
	if err != nil {
		t.Fatalf("role permissions: %v", err)
	}
	if perms != nil {
		t.Fatalf("perms = %v, want nil for inactive role", perms)
	}
}

func TestAppsForUserFiltersExpiredGrants(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select a.id, a.name, a.url, a.is_active(.|\n)+from app_grants g").
		WithArgs("user-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "url", "is_active"}).
			AddRow("app-1", "Dispatch Board", "https://dispatch.example.com", true))

	apps, err := store.AppsForUser(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("apps for user: %v", err)
	}
	if len(apps) != 1 || apps[0].Name != "Dispatch Board" {
		t.Fatalf("apps = %v", apps)
	}
}

func TestUpdateGrantClearExpiry(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	granted := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("update app_grants set expires_at = NULL").
		WithArgs("grant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select(.|\n)+from app_grants g").
		WithArgs("grant-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "app_id", "name", "granted_by", "granted_at", "expires_at", "is_active",
		}).AddRow("grant-1", "user-1", "app-1", "Dispatch Board", "admin-1", granted, nil, true))

	grant, err := store.UpdateGrant(context.Background(), "grant-1", auth.GrantUpdate{ClearExpiry: true})
	if err != nil {
		t.Fatalf("update grant: %v", err)
	}
	if grant.ExpiresAt != nil {
		t.Fatalf("expires_at = %v, want nil", grant.ExpiresAt)
	}
}

func TestDeleteItemMissing(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("delete from items").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteItem(context.Background(), "ghost"); !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
