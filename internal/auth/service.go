// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/quizforge/internal/config"
	"github.com/carterperez-dev/quizforge/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInactiveUser       = errors.New("inactive user")
	ErrEmailExists        = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrRefreshMissing     = errors.New("refresh token missing")
	ErrCSRFMissing        = errors.New("csrf token missing")
	ErrCSRFMismatch       = errors.New("invalid csrf token")
	ErrRefreshInvalid     = errors.New("invalid or expired refresh token")
	ErrSessionUser        = errors.New("user not found or inactive")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrAlreadyVerified    = errors.New("email already verified")
)

type UserInfo struct {
	ID           string
	Email        string
	Username     string
	FullName     string
	PasswordHash string
	Role         string
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
}

type NewUser struct {
	Email        string
	Username     string
	FullName     string
	PasswordHash string
}

// UserProvider is the credential store. Create reports ErrEmailExists or
// ErrUsernameExists on uniqueness conflicts.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, u NewUser) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	MarkVerified(ctx context.Context, userID string) error
}

type Mailer interface {
	SendVerification(ctx context.Context, to, username, token string) error
	SendPasswordReset(ctx context.Context, to, username, token string) error
}

type Service struct {
	repo         Repository
	tokens       *TokenIssuer
	userProvider UserProvider
	mailer       Mailer
	cfg          config.JWTConfig
	logger       *slog.Logger
}

func NewService(
	repo Repository,
	tokens *TokenIssuer,
	userProvider UserProvider,
	mailer Mailer,
	cfg config.JWTConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:         repo,
		tokens:       tokens,
		userProvider: userProvider,
		mailer:       mailer,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*UserInfo, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(ctx, NewUser{
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, err
	}

	s.sendVerification(ctx, user)

	return user, nil
}

func (s *Service) Login(
	ctx context.Context,
	email, password, userAgent, ipAddress string,
) (*Session, error) {
	user, err := s.userProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // equalise timing for unknown emails
			_, _, _ = core.VerifyPasswordTimingSafe(password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	if newHash != "" {
		if err := s.userProvider.UpdatePassword(ctx, user.ID, newHash); err != nil {
			s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		}
	}

	refresh, err := s.tokens.newRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &RefreshToken{
		UserID:    user.ID,
		TokenHash: refresh.Hash,
		ExpiresAt: refresh.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	session, err := s.mintSession(user)
	if err != nil {
		return nil, err
	}
	session.RefreshToken = refresh.Token

	return session, nil
}

// Refresh exchanges a refresh cookie for a new access token. The CSRF pair
// is checked before the token store is touched. The refresh token itself is
// kept as is.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, csrfCookie, csrfSubmitted string,
) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrRefreshMissing
	}
	if csrfCookie == "" || csrfSubmitted == "" {
		return nil, ErrCSRFMissing
	}
	if !core.ConstantTimeEqual(csrfCookie, csrfSubmitted) {
		return nil, ErrCSRFMismatch
	}

	stored, err := s.repo.FindValidByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	user, err := s.userProvider.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrSessionUser
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrSessionUser
	}

	return s.mintSession(user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.repo.Revoke(ctx, core.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	return nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.repo.ConsumeVerification(ctx, core.HashToken(token))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidVerifyToken
		}
		return fmt.Errorf("consume verification token: %w", err)
	}

	if err := s.userProvider.MarkVerified(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidVerifyToken
		}
		return fmt.Errorf("mark verified: %w", err)
	}

	return nil
}

func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	s.sendVerification(ctx, user)
	return nil
}

// RequestPasswordReset never reveals whether the address is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive {
		return nil
	}

	token, err := core.GenerateOneTimeToken()
	if err != nil {
		return err
	}

	if err := s.repo.CreatePasswordReset(
		ctx,
		user.ID,
		core.HashToken(token),
		s.cfg.ResetTokenExpire,
	); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, token); err != nil {
		s.logger.Error("send password reset email",
			"user_id", user.ID,
			"error", err,
		)
	}

	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.repo.ConsumePasswordReset(ctx, core.HashToken(token))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userProvider.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.repo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.logger.Info("password reset completed",
		"user_id", userID,
		"sessions_revoked", revoked,
	)

	return nil
}

// RunJanitor purges expired one-time tokens until ctx is cancelled.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repo.DeleteExpired(ctx)
			if err != nil {
				s.logger.Warn("token cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("expired tokens removed", "count", n)
			}
		}
	}
}

func (s *Service) mintSession(user *UserInfo) (*Session, error) {
	ttl := s.tokens.AccessTTL()

	access, err := s.tokens.IssueAccessToken(user.ID, user.Role, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	csrf, err := core.GenerateCSRFToken()
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken: access,
		CSRFToken:   csrf,
		ExpiresIn:   int(ttl / time.Second),
	}, nil
}

func (s *Service) sendVerification(ctx context.Context, user *UserInfo) {
	token, err := core.GenerateOneTimeToken()
	if err != nil {
		s.logger.Error("generate verification token", "error", err)
		return
	}

	if err := s.repo.CreateVerification(
		ctx,
		user.ID,
		core.HashToken(token),
		s.cfg.VerificationTokenExpire,
	); err != nil {
		s.logger.Error("store verification token",
			"user_id", user.ID,
			"error", err,
		)
		return
	}

	if err := s.mailer.SendVerification(ctx, user.Email, user.Username, token); err != nil {
		s.logger.Error("send verification email",
			"user_id", user.ID,
			"error", err,
		)
	}
}
