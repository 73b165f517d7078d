// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/quizforge/internal/config"
	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/middleware"
)

const accessTokenType = "access"

type TokenIssuer struct {
	key    jwk.Key
	config config.JWTConfig
}

func NewTokenIssuer(cfg config.JWTConfig) (*TokenIssuer, error) {
	if len(cfg.SecretKey) < 32 {
		return nil, errors.New("jwt secret key must be at least 32 bytes")
	}

	key, err := jwk.Import([]byte(cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	return &TokenIssuer{key: key, config: cfg}, nil
}

func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.config.AccessTokenExpire
}

func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.config.RefreshTokenExpire
}

func (t *TokenIssuer) IssueAccessToken(
	userID, role string,
	ttl time.Duration,
) (string, error) {
	return t.sign(userID, role, accessTokenType, ttl)
}

func (t *TokenIssuer) sign(
	userID, role, tokenType string,
	ttl time.Duration,
) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(t.config.Issuer).
		Audience([]string{t.config.Audience}).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim("role", role).
		Claim("type", tokenType).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), t.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

func (t *TokenIssuer) VerifyAccessToken(
	_ context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), t.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(t.config.Issuer),
		jwt.WithAudience(t.config.Audience),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err != nil || tokenType != accessTokenType {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenWrongType)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", core.ErrTokenInvalid)
	}

	var role string
	if err := token.Get("role", &role); err != nil {
		return nil, fmt.Errorf("verify token: missing role: %w", core.ErrTokenInvalid)
	}

	jti, _ := token.JwtID()
	exp, _ := token.Expiration()

	return &middleware.AccessTokenClaims{
		UserID:    subject,
		Role:      role,
		JTI:       jti,
		ExpiresAt: exp,
	}, nil
}

type refreshTokenData struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
}

func (t *TokenIssuer) newRefreshToken() (*refreshTokenData, error) {
	token, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &refreshTokenData{
		Token:     token,
		Hash:      core.HashToken(token),
		ExpiresAt: time.Now().Add(t.config.RefreshTokenExpire),
	}, nil
}
