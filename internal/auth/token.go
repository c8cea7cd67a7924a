package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Blacklist persists revoked token ids.
type Blacklist interface {
	// RevokeToken reports false if jti was already revoked.
	RevokeToken(ctx context.Context, jti string, until time.Time) (bool, error)
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpiredRevokedTokens(ctx context.Context) (int64, error)
}

// Claims represents the claims in a JWT token. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return id, nil
}

// Token is a signed JWT and the moment it stops authenticating.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type TokenConfig struct {
	Secret     string
	TTL        time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// TokenManager handles token operations
type TokenManager struct {
	secretKey  []byte
	ttl        time.Duration
	refreshTTL time.Duration
	issuer     string
	blacklist  Blacklist
	now        func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(cfg TokenConfig, blacklist Blacklist) *TokenManager {
	return &TokenManager{
		secretKey:  []byte(cfg.Secret),
		ttl:        cfg.TTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
		blacklist:  blacklist,
		now:        time.Now,
	}
}

// TTL is how long an issued token authenticates.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue creates a new JWT token for a user
func (tm *TokenManager) Issue(userID int64) (*Token, error) {
	return tm.sign(strconv.FormatInt(userID, 10), tm.now())
}

// sign builds a token whose refresh window is anchored at issuedAt.
func (tm *TokenManager) sign(subject string, issuedAt time.Time) (*Token, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tm.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secretKey)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Value: signed, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// parse checks the signature and claim shape only; time-based checks are left to callers.
func (tm *TokenManager) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return tm.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.ID == "" || claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing claims", ErrTokenInvalid)
	}
	if tm.issuer != "" && claims.Issuer != tm.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	return claims, nil
}

func (tm *TokenManager) refreshDeadline(c *Claims) time.Time {
	return c.IssuedAt.Time.Add(tm.refreshTTL)
}

func (tm *TokenManager) checkRevoked(ctx context.Context, c *Claims) error {
	revoked, err := tm.blacklist.IsTokenRevoked(ctx, c.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

// Validate returns the claims of a token that may authenticate a request right now.
func (tm *TokenManager) Validate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := tm.parse(raw)
	if err != nil {
		return nil, err
	}

	now := tm.now()
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return nil, fmt.Errorf("%w: not valid yet", ErrTokenInvalid)
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	if err := tm.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Refresh exchanges a token for a new one. Expired tokens are accepted while
// still inside the refresh window; the old token is blacklisted.
func (tm *TokenManager) Refresh(ctx context.Context, raw string) (*Token, error) {
	claims, err := tm.parse(raw)
	if err != nil {
		return nil, err
	}

	deadline := tm.refreshDeadline(claims)
	if !tm.now().Before(deadline) {
		return nil, ErrRefreshExpired
	}
	if err := tm.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	// the insert decides which of two concurrent refreshes wins
	revoked, err := tm.blacklist.RevokeToken(ctx, claims.ID, deadline)
	if err != nil {
		return nil, fmt.Errorf("revoke refreshed token: %w", err)
	}
	if !revoked {
		return nil, ErrTokenRevoked
	}
	return tm.sign(claims.Subject, claims.IssuedAt.Time)
}

// Invalidate blacklists the token for the rest of its refresh window.
func (tm *TokenManager) Invalidate(ctx context.Context, raw string) error {
	claims, err := tm.parse(raw)
	if err != nil {
		return err
	}
	if _, err := tm.blacklist.RevokeToken(ctx, claims.ID, tm.refreshDeadline(claims)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// PruneBlacklist removes entries for tokens that are past their refresh window.
func (tm *TokenManager) PruneBlacklist(ctx context.Context) (int64, error) {
	return tm.blacklist.DeleteExpiredRevokedTokens(ctx)
}
