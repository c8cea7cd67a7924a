package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/novostroy/novostroy-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, dbType string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, dbType)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestCreateUser_PostgresUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (name, email, password, phone, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.CreateUser(context.Background(), &models.User{Name: "A", Email: "a@example.com", Password: "h"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DriverError(t *testing.T) {
	s, mock := newMockStore(t, "sqlite")
	boom := errors.New("disk I/O error")

	mock.ExpectQuery("INSERT INTO users").WillReturnError(boom)

	err := s.CreateUser(context.Background(), &models.User{Name: "A", Email: "a@example.com", Password: "h"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestGetUserByEmail_QueryError(t *testing.T) {
	s, mock := newMockStore(t, "postgres")
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("a@example.com").
		WillReturnError(boom)

	_, err := s.GetUserByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestIsTokenRevoked_QueryError(t *testing.T) {
	s, mock := newMockStore(t, "sqlite")

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("locked"))

	revoked, err := s.IsTokenRevoked(context.Background(), "jti")
	assert.Error(t, err)
	assert.False(t, revoked)
}

func TestRevokeToken_UsesUnixExpiry(t *testing.T) {
	s, mock := newMockStore(t, "postgres")
	until := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING")).
		WithArgs("jti-1", until.Unix()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := s.RevokeToken(context.Background(), "jti-1", until)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserPassword_ExecError(t *testing.T) {
	s, mock := newMockStore(t, "sqlite")

	mock.ExpectExec("UPDATE users SET password").WillReturnError(errors.New("readonly"))

	err := s.UpdateUserPassword(context.Background(), 1, "hash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
