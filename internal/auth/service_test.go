// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.register(t, "alice@x.com", "alice", "pw12345678")
	assert.Equal(t, "user", u.Role)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsVerified)
	assert.NotEqual(t, "pw12345678", u.PasswordHash)

	mail := f.mailer.last("verify")
	assert.Equal(t, "alice@x.com", mail.to)
	assert.NotEmpty(t, mail.token)

	_, err := f.svc.Register(ctx, RegisterRequest{
		Email: "alice@x.com", Username: "other", Password: "pw12345678",
	})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = f.svc.Register(ctx, RegisterRequest{
		Email: "bob@x.com", Username: "alice", Password: "pw12345678",
	})
	assert.ErrorIs(t, err, ErrUsernameExists)

	assert.Len(t, f.users.users, 1)
}

func TestRegisterSwallowsMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")

	u := f.register(t, "carol@x.com", "carol", "pw12345678")
	assert.NotEmpty(t, u.ID)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice@x.com", "alice", "pw12345678")

	_, err := f.svc.Login(ctx, "alice@x.com", "wrong-password", "ua", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@x.com", "pw12345678", "ua", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := f.svc.Login(ctx, "alice@x.com", "pw12345678", "ua", "1.2.3.4")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.NotEmpty(t, session.CSRFToken)
	assert.Equal(t, 30*60, session.ExpiresIn)
	assert.Equal(t, 1, f.repo.activeCount(u.ID))

	f.users.setActive(u.ID, false)
	_, err = f.svc.Login(ctx, "alice@x.com", "pw12345678", "ua", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestRefreshOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice@x.com", "alice", "pw12345678")

	session, err := f.svc.Login(ctx, "alice@x.com", "pw12345678", "", "")
	require.NoError(t, err)

	rt, csrf := session.RefreshToken, session.CSRFToken

	tests := []struct {
		name                    string
		refresh, cookie, header string
		want                    error
	}{
		{"no refresh cookie", "", csrf, csrf, ErrRefreshMissing},
		{"no csrf cookie", rt, "", csrf, ErrCSRFMissing},
		{"no csrf header", rt, csrf, "", ErrCSRFMissing},
		{"csrf mismatch with valid token", rt, csrf, csrf + "x", ErrCSRFMismatch},
		{"csrf mismatch with bogus token", "bogus", csrf, "other", ErrCSRFMismatch},
		{"unknown refresh token", "bogus", csrf, csrf, ErrRefreshInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Refresh(ctx, tt.refresh, tt.cookie, tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("success keeps the refresh token", func(t *testing.T) {
		next, err := f.svc.Refresh(ctx, rt, csrf, csrf)
		require.NoError(t, err)
		assert.NotEmpty(t, next.AccessToken)
		assert.NotEqual(t, csrf, next.CSRFToken)
		// Refresh tokens are not rotated; the same token keeps working.
		assert.Empty(t, next.RefreshToken)

		again, err := f.svc.Refresh(ctx, rt, next.CSRFToken, next.CSRFToken)
		require.NoError(t, err)
		assert.NotEmpty(t, again.AccessToken)
	})

	t.Run("inactive user", func(t *testing.T) {
		f.users.setActive(u.ID, false)
		defer f.users.setActive(u.ID, true)

		_, err := f.svc.Refresh(ctx, rt, csrf, csrf)
		assert.ErrorIs(t, err, ErrSessionUser)
	})

	t.Run("revoked token", func(t *testing.T) {
		require.NoError(t, f.svc.Logout(ctx, rt))
		_, err := f.svc.Refresh(ctx, rt, csrf, csrf)
		assert.ErrorIs(t, err, ErrRefreshInvalid)
	})
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice@x.com", "alice", "pw12345678")

	session, err := f.svc.Login(ctx, "alice@x.com", "pw12345678", "", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, session.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, session.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, ""))
	assert.Equal(t, 0, f.repo.activeCount(u.ID))
}

func TestVerifyEmailSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice@x.com", "alice", "pw12345678")
	token := f.mailer.last("verify").token

	require.NoError(t, f.svc.VerifyEmail(ctx, token))

	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, token), ErrInvalidVerifyToken)
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "garbage"), ErrInvalidVerifyToken)

	assert.ErrorIs(t, f.svc.ResendVerification(ctx, u.ID), ErrAlreadyVerified)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice@x.com", "alice", "pw12345678")

	for range 2 {
		_, err := f.svc.Login(ctx, "alice@x.com", "pw12345678", "", "")
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.repo.activeCount(u.ID))

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "unknown@x.com"))
	assert.Empty(t, f.mailer.last("reset").token)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@x.com"))
	token := f.mailer.last("reset").token
	require.NotEmpty(t, token)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "newpassword99"))
	assert.Equal(t, 0, f.repo.activeCount(u.ID))

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "another-pass1"), ErrInvalidResetToken)

	_, err := f.svc.Login(ctx, "alice@x.com", "pw12345678", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "alice@x.com", "newpassword99", "", "")
	assert.NoError(t, err)
}
