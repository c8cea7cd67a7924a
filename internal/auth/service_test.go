package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/novostroy/novostroy-api/internal/config"
	"github.com/novostroy/novostroy-api/internal/database"
	"github.com/novostroy/novostroy-api/internal/logger"
	"github.com/novostroy/novostroy-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type serviceFixture struct {
	svc   *Service
	store *store.Store
	clock *fakeClock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.Database{
		Type: database.TypeSQLite,
		Path: filepath.Join(t.TempDir(), "auth.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db, database.TypeSQLite)
	tm, clock := newTestTokenManager(st)

	svc, err := NewService(st, st, tm, NewBcryptHasher(bcrypt.MinCost), time.Hour, logger.Nop())
	require.NoError(t, err)
	svc.now = clock.now

	return &serviceFixture{svc: svc, store: st, clock: clock}
}

func (f *serviceFixture) register(t *testing.T, email, password string) {
	t.Helper()
	_, _, err := f.svc.Register(context.Background(), RegisterInput{Name: "Test User", Email: email, Password: password})
	require.NoError(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user, token, err := f.svc.Register(ctx, RegisterInput{Name: " Anna ", Email: "Anna@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Anna", user.Name)
	assert.Equal(t, "anna@example.com", user.Email)
	assert.NotEqual(t, "password123", user.Password)
	assert.NotEmpty(t, token.Value)

	authed, err := f.svc.Authenticate(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	loggedIn, loginToken, err := f.svc.Login(ctx, "anna@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEqual(t, token.Value, loginToken.Value)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "dup@example.com", "password123")

	_, _, err := f.svc.Register(context.Background(), RegisterInput{Name: "Other", Email: "DUP@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	taken, err := f.svc.EmailTaken(context.Background(), " Dup@Example.com ")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestLoginFailures(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "user@example.com", "password123")

	_, _, err := f.svc.Login(context.Background(), "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "user@example.com", "password123")

	_, token, err := f.svc.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, token.Value))

	_, err = f.svc.Authenticate(ctx, token.Value)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshAuthenticates(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "user@example.com", "password123")

	_, token, err := f.svc.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	f.clock.advance(10 * time.Minute)
	refreshed, err := f.svc.Refresh(ctx, token.Value)
	require.NoError(t, err)

	user, err := f.svc.Authenticate(ctx, refreshed.Value)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestResetPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "reset@example.com", "old-password")

	plain, err := f.svc.CreatePasswordReset(ctx, "reset@example.com")
	require.NoError(t, err)
	assert.Len(t, plain, 64)

	t.Run("WrongToken", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, "reset@example.com", "tampered", "new-password")
		assert.ErrorIs(t, err, ErrInvalidResetToken)

		_, _, err = f.svc.Login(ctx, "reset@example.com", "old-password")
		assert.NoError(t, err, "a failed reset must not change the password")
	})

	t.Run("ValidToken", func(t *testing.T) {
		require.NoError(t, f.svc.ResetPassword(ctx, "reset@example.com", plain, "new-password"))

		_, _, err := f.svc.Login(ctx, "reset@example.com", "new-password")
		assert.NoError(t, err)
		_, _, err = f.svc.Login(ctx, "reset@example.com", "old-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("TokenIsSingleUse", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, "reset@example.com", plain, "third-password")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "late@example.com", "old-password")

	plain, err := f.svc.CreatePasswordReset(ctx, "late@example.com")
	require.NoError(t, err)

	f.clock.t = time.Now().Add(2 * time.Hour)
	err = f.svc.ResetPassword(ctx, "late@example.com", plain, "new-password")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordUnknownUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash("orphan-token")
	require.NoError(t, err)
	require.NoError(t, f.store.UpsertPasswordResetToken(ctx, "ghost@example.com", hash))

	f.clock.t = time.Now()
	err = f.svc.ResetPassword(ctx, "ghost@example.com", "orphan-token", "new-password")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreatePasswordResetUnknownUser(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.CreatePasswordReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPrune(t *testing.T) {
	f := newServiceFixture(t)
	assert.NoError(t, f.svc.Prune(context.Background()))
}
