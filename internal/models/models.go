package models

import (
	"time"
)

// PasswordResetToken is the pending reset for an email. Token is a bcrypt hash of the value mailed to the user.
type PasswordResetToken struct {
	Email     string    `db:"email"`
	Token     string    `db:"token"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the token is older than ttl at now.
func (p *PasswordResetToken) Expired(now time.Time, ttl time.Duration) bool {
	return !p.CreatedAt.Add(ttl).After(now)
}
