package services

import (
	"context"
	"testing"

	"cardpool/internal/adapters/persistence/repositories"
	"cardpool/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(f *fixture) *AuthService {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
	return NewAuthService(
		repositories.NewMemberRepository(f.db),
		repositories.NewRefreshTokenRepository(f.db),
		cfg,
	)
}

func TestSignup_FirstMemberBecomesAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authService := newAuthService(f)

	first, err := authService.Signup(ctx, &SignupInput{
		Email:    "alice@example.com",
		Password: "secret123",
		Nickname: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", first.Member.Role)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)

	second, err := authService.Signup(ctx, &SignupInput{
		Email:    "bob@example.com",
		Password: "secret123",
		Nickname: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "MEMBER", second.Member.Role)
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authService := newAuthService(f)

	_, err := authService.Signup(ctx, &SignupInput{
		Email: "alice@example.com", Password: "short", Nickname: "alice",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = authService.Signup(ctx, &SignupInput{
		Email: "alice@example.com", Password: "secret123", Nickname: "alice",
	})
	require.NoError(t, err)

	_, err = authService.Signup(ctx, &SignupInput{
		Email: "alice@example.com", Password: "secret123", Nickname: "alice2",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = authService.Signup(ctx, &SignupInput{
		Email: "other@example.com", Password: "secret123", Nickname: "alice",
	})
	assert.ErrorIs(t, err, ErrNicknameTaken)
}

func TestSignup_StorageErrorSurfaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authService := newAuthService(f)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// A failing uniqueness lookup must not masquerade as a taken email
	_, err = authService.Signup(ctx, &SignupInput{
		Email: "alice@example.com", Password: "secret123", Nickname: "alice",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailTaken)
	assert.NotErrorIs(t, err, ErrNicknameTaken)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authService := newAuthService(f)

	_, err := authService.Signup(ctx, &SignupInput{
		Email: "alice@example.com", Password: "secret123", Nickname: "alice",
	})
	require.NoError(t, err)

	result, err := authService.Login(ctx, &LoginInput{
		Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Member.Nickname)

	_, err = authService.Login(ctx, &LoginInput{
		Email: "alice@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = authService.Login(ctx, &LoginInput{
		Email: "nobody@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken_Rotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authService := newAuthService(f)

	signup, err := authService.Signup(ctx, &SignupInput{
		Email: "alice@example.com", Password: "secret123", Nickname: "alice",
	})
	require.NoError(t, err)

	refreshed, err := authService.RefreshToken(ctx, signup.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, signup.RefreshToken, refreshed.RefreshToken)

	// The old refresh token was revoked by the rotation
	_, err = authService.RefreshToken(ctx, signup.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The rotated token still works
	_, err = authService.RefreshToken(ctx, refreshed.RefreshToken)
	require.NoError(t, err)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authService := newAuthService(f)

	signup, err := authService.Signup(ctx, &SignupInput{
		Email: "alice@example.com", Password: "secret123", Nickname: "alice",
	})
	require.NoError(t, err)

	require.NoError(t, authService.Logout(ctx, signup.RefreshToken))

	_, err = authService.RefreshToken(ctx, signup.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshToken_Garbage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authService := newAuthService(f)

	_, err := authService.RefreshToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
