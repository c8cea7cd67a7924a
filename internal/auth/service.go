package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/novostroy/novostroy-api/internal/logger"
	"github.com/novostroy/novostroy-api/internal/models"
	"github.com/novostroy/novostroy-api/internal/store"
)

// UserStore is the part of the credential store the service needs for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateUserPassword(ctx context.Context, id int64, hash string) error
}

// ResetTokenStore keeps at most one pending password reset per email.
type ResetTokenStore interface {
	UpsertPasswordResetToken(ctx context.Context, email, hash string) error
	GetPasswordResetToken(ctx context.Context, email string) (*models.PasswordResetToken, error)
	DeletePasswordResetToken(ctx context.Context, email string) error
	DeleteExpiredPasswordResetTokens(ctx context.Context, before time.Time) (int64, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    *string
}

// Service implements account operations on top of the credential store and token manager.
type Service struct {
	users    UserStore
	resets   ResetTokenStore
	tokens   *TokenManager
	hasher   Hasher
	resetTTL time.Duration
	log      *logger.Logger
	now      func() time.Time

	// compared against when the email is unknown so both paths cost one bcrypt check
	dummyHash string
}

func NewService(users UserStore, resets ResetTokenStore, tokens *TokenManager, hasher Hasher, resetTTL time.Duration, log *logger.Logger) (*Service, error) {
	dummy, err := hasher.Hash("novostroy-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("prepare hasher: %w", err)
	}
	return &Service{
		users:     users,
		resets:    resets,
		tokens:    tokens,
		hasher:    hasher,
		resetTTL:  resetTTL,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks credentials and issues a token. If only the token could not
// be issued, the user is returned along with the error.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *Token, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	ok, err := s.hasher.Verify(password, user.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return user, nil, err
	}
	return user, token, nil
}

// EmailTaken reports whether an account already uses email.
func (s *Service) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.users.EmailExists(ctx, NormalizeEmail(email))
}

// Register creates the account and issues its first token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, *Token, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    NormalizeEmail(in.Email),
		Password: hash,
		Phone:    in.Phone,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return user, nil, err
	}
	return user, token, nil
}

// Authenticate resolves the user behind a bearer token.
func (s *Service) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.tokens.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrTokenInvalid)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.tokens.Invalidate(ctx, raw)
}

func (s *Service) Refresh(ctx context.Context, raw string) (*Token, error) {
	return s.tokens.Refresh(ctx, raw)
}

// CreatePasswordReset stores a fresh reset token for an existing account and
// returns the plain value that has to reach the user.
func (s *Service) CreatePasswordReset(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if _, err := s.users.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	plain := hex.EncodeToString(buf)

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("hash reset token: %w", err)
	}
	if err := s.resets.UpsertPasswordResetToken(ctx, email, hash); err != nil {
		return "", err
	}
	return plain, nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, email, token, password string) error {
	email = NormalizeEmail(email)

	record, err := s.resets.GetPasswordResetToken(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if record.Expired(s.now(), s.resetTTL) {
		return ErrInvalidResetToken
	}
	ok, err := s.hasher.Verify(token, record.Token)
	if err != nil || !ok {
		return ErrInvalidResetToken
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return err
	}
	if err := s.resets.DeletePasswordResetToken(ctx, email); err != nil {
		s.log.Warn("password changed but reset token not deleted", "email", email, "error", err)
	}
	return nil
}

// Prune drops expired reset tokens and blacklist entries.
func (s *Service) Prune(ctx context.Context) error {
	resets, err := s.resets.DeleteExpiredPasswordResetTokens(ctx, s.now().Add(-s.resetTTL))
	if err != nil {
		return err
	}
	revoked, err := s.tokens.PruneBlacklist(ctx)
	if err != nil {
		return err
	}
	if resets > 0 || revoked > 0 {
		s.log.Info("pruned expired auth records", "reset_tokens", resets, "revoked_tokens", revoked)
	}
	return nil
}

// RunCleanup calls Prune every interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.Prune(ctx); err != nil {
			s.log.Error("error cleaning up expired auth records", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
