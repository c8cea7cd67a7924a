package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/novostroy/novostroy-api/internal/models"
)

// UpsertPasswordResetToken replaces any pending reset for email with hash.
func (s *Store) UpsertPasswordResetToken(ctx context.Context, email, hash string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO password_reset_tokens (email, token, created_at) VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET token = excluded.token, created_at = excluded.created_at`,
	), email, hash, s.timestamp())
	if err != nil {
		return fmt.Errorf("upsert reset token: %w", err)
	}
	return nil
}

func (s *Store) GetPasswordResetToken(ctx context.Context, email string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT email, token, created_at FROM password_reset_tokens WHERE email = ?",
	), email).Scan(&t.Email, &t.Token, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select reset token: %w", err)
	}
	return &t, nil
}

func (s *Store) DeletePasswordResetToken(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM password_reset_tokens WHERE email = ?"), email); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}

// DeleteExpiredPasswordResetTokens removes resets created before the cutoff and returns how many were removed.
func (s *Store) DeleteExpiredPasswordResetTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		"DELETE FROM password_reset_tokens WHERE created_at < ?",
	), before.UTC().Truncate(time.Second))
	if err != nil {
		return 0, fmt.Errorf("delete expired reset tokens: %w", err)
	}
	return res.RowsAffected()
}
