package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/aloha-admin/internal/model"
)

func newRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewUserRepo(db), mock
}

var columns = []string{"id", "email", "password_hash", "first_name", "last_name", "role", "created_at", "updated_at"}

func TestCreate_NormalizesEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (" + userColumns + ") VALUES (?,?,?,?,?,?,?,?)")).
		WithArgs("id-1", "alice@example.com", "digest", "Alice", "Liddell", "user", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &model.User{ID: "id-1", Email: "  Alice@Example.COM ", PasswordHash: "digest",
		FirstName: "Alice", LastName: "Liddell", Role: model.RoleUser, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice@example.com' for key 'uq_users_email'"})

	err := repo.Create(context.Background(), &model.User{ID: "id-1", Email: "alice@example.com"})
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &model.User{ID: "id-1", Email: "a@x.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailExists)
	assert.Contains(t, err.Error(), "db down")
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE email=? LIMIT 1")).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("id-1", "alice@example.com", "digest", "Alice", "Liddell", "admin", now, now))

	u, err := repo.GetByEmail(context.Background(), "ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "id-1", u.ID)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, "digest", u.PasswordHash)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE email").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE id").WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), "id-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUpdate_NoRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.User{ID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_WritesProfileFields(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET first_name=?, last_name=?, password_hash=?, role=?, updated_at=? WHERE id=?")).
		WithArgs("Al", "L", "digest", "user", now, "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &model.User{ID: "id-1", FirstName: "Al", LastName: "L",
		PasswordHash: "digest", Role: model.RoleUser, UpdatedAt: now})
	require.NoError(t, err)
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM users ORDER BY created_at DESC").
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("id-2", "b@x.com", "d2", "B", "B", "user", now, now).
			AddRow("id-1", "a@x.com", "d1", "A", "A", "admin", now, now))

	users, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "id-2", users[0].ID)
	assert.Equal(t, model.RoleAdmin, users[1].Role)
}
