package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/novostroy/novostroy-api/internal/models"
)

const userColumns = "id, name, email, password, phone, created_at, updated_at"

// CreateUser inserts u and fills in its ID and timestamps.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	now := s.timestamp()

	err := s.db.QueryRowContext(ctx, s.rebind(
		"INSERT INTO users (name, email, password, phone, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id",
	), u.Name, u.Email, u.Password, nullString(u.Phone), now, now).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by id
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u     models.User
		phone sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.Password, &phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	return &u, nil
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM users WHERE email = ?"), email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// UpdateUserPassword stores a new password hash for the user.
func (s *Store) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		"UPDATE users SET password = ?, updated_at = ? WHERE id = ?",
	), hash, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
