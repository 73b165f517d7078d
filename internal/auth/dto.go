// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=100"`
}

type RegisterRequest struct {
	Email           string `json:"email"            validate:"required,email,max=255"`
	Username        string `json:"username"         validate:"required,min=3,max=50"`
	FullName        string `json:"full_name"        validate:"max=100"`
	Password        string `json:"password"         validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type RefreshRequest struct {
	CSRFToken string `json:"csrf_token"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"            validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session is the credential set handed to a client on login or refresh.
// RefreshToken is empty on refresh because the refresh token is reused.
type Session struct {
	AccessToken  string
	RefreshToken string
	CSRFToken    string
	ExpiresIn    int
}

func (s *Session) TokenResponse() TokenResponse {
	return TokenResponse{
		AccessToken: s.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   s.ExpiresIn,
	}
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		FullName:   u.FullName,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}
