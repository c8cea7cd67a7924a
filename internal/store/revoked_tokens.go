package store

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken blacklists jti until the given time. It reports false when jti
// was already blacklisted; revoking twice is not an error.
func (s *Store) RevokeToken(ctx context.Context, jti string, until time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		"INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING",
	), jti, until.Unix())
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return n > 0, nil
}

func (s *Store) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?",
	), jti).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// DeleteExpiredRevokedTokens drops blacklist entries whose tokens can no longer be used or refreshed.
func (s *Store) DeleteExpiredRevokedTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		"DELETE FROM revoked_tokens WHERE expires_at <= ?",
	), s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
