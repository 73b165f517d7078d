// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/quizforge/internal/auth"
	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/middleware"
)

var (
	ErrWrongPassword = errors.New("current password is incorrect")
	ErrOwnRole       = errors.New("cannot change own role")
)

// SessionRevoker ends every refresh session a user holds.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	repo     Repository
	sessions SessionRevoker
}

func NewService(repo Repository, sessions SessionRevoker) *Service {
	return &Service{repo: repo, sessions: sessions}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// Create checks both unique columns first so the caller learns which one
// clashed; the index violation covers the race between check and insert.
func (s *Service) Create(
	ctx context.Context,
	nu auth.NewUser,
) (*auth.UserInfo, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))

	taken, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, auth.ErrEmailExists
	}

	taken, err = s.repo.ExistsByUsername(ctx, nu.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, auth.ErrUsernameExists
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		Role:         middleware.RoleUser,
	}
	if nu.FullName != "" {
		user.FullName = &nu.FullName
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, mapDuplicate(err)
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) MarkVerified(ctx context.Context, userID string) error {
	return s.repo.SetVerified(ctx, userID)
}

// ResolveUser loads the acting user for session resolution.
func (s *Service) ResolveUser(
	ctx context.Context,
	userID string,
) (*middleware.Principal, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &middleware.Principal{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		Role:       user.Role,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
	}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateMeRequest,
) (*User, error) {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		taken, err := s.repo.ExistsByUsername(ctx, *req.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, auth.ErrUsernameExists
		}
		user.Username = *req.Username
	}

	if req.FullName != nil {
		user.FullName = req.FullName
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, mapDuplicate(err)
	}

	return user, nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID string,
	req ChangePasswordRequest,
) error {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := core.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return ErrWrongPassword
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if _, err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	return nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	actorID, targetID, role string,
) (*User, error) {
	if !middleware.ValidRole(role) {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	if actorID == targetID {
		return nil, ErrOwnRole
	}

	if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, targetID)
}

// RemoveUser soft-deletes and deactivates an account and ends its sessions.
func (s *Service) RemoveUser(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	if _, err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	return nil
}

func mapDuplicate(err error) error {
	switch {
	case errors.Is(err, errEmailTaken):
		return auth.ErrEmailExists
	case errors.Is(err, errUsernameTaken):
		return auth.ErrUsernameExists
	default:
		return err
	}
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FullName:     u.DisplayName(),
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
	}
}

var (
	_ auth.UserProvider       = (*Service)(nil)
	_ middleware.UserResolver = (*Service)(nil)
)
