// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/quizforge/internal/core"
)

const AccessTokenCookie = "access_token"

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

// UserResolver loads the current state of the user named by a token subject.
type UserResolver interface {
	ResolveUser(ctx context.Context, userID string) (*Principal, error)
}

type AccessTokenClaims struct {
	UserID    string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

type SessionState int

const (
	SessionNoToken SessionState = iota
	SessionValid
	SessionExpired
	SessionMalformed
	SessionWrongType
	SessionUserMissing
	SessionUserInactive
	SessionError
)

func (s SessionState) String() string {
	switch s {
	case SessionNoToken:
		return "no_token"
	case SessionValid:
		return "valid"
	case SessionExpired:
		return "expired"
	case SessionMalformed:
		return "malformed"
	case SessionWrongType:
		return "wrong_type"
	case SessionUserMissing:
		return "user_missing"
	case SessionUserInactive:
		return "user_inactive"
	default:
		return "error"
	}
}

// ResolveSession walks a raw token through verification and user lookup.
// Only SessionValid carries a principal.
func ResolveSession(
	ctx context.Context,
	token string,
	verifier TokenVerifier,
	resolver UserResolver,
) (*Principal, *AccessTokenClaims, SessionState, error) {
	if token == "" {
		return nil, nil, SessionNoToken, nil
	}

	claims, err := verifier.VerifyAccessToken(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			return nil, nil, SessionExpired, err
		case errors.Is(err, core.ErrTokenWrongType):
			return nil, nil, SessionWrongType, err
		default:
			return nil, nil, SessionMalformed, err
		}
	}

	principal, err := resolver.ResolveUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, SessionUserMissing, err
		}
		return nil, nil, SessionError, err
	}

	if !principal.IsActive {
		return nil, nil, SessionUserInactive, nil
	}

	return principal, claims, SessionValid, nil
}

func Authenticator(
	verifier TokenVerifier,
	resolver UserResolver,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, claims, state, err := ResolveSession(
				r.Context(),
				ExtractToken(r),
				verifier,
				resolver,
			)

			if state != SessionValid {
				writeSessionError(w, state, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func OptionalAuth(
	verifier TokenVerifier,
	resolver UserResolver,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, claims, state, _ := ResolveSession(
				r.Context(),
				ExtractToken(r),
				verifier,
				resolver,
			)

			if state == SessionValid {
				r = r.WithContext(WithPrincipal(r.Context(), principal, claims))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken reads the access token cookie, falling back to a bearer header.
func ExtractToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func writeSessionError(w http.ResponseWriter, state SessionState, err error) {
	w.Header().Set("WWW-Authenticate", "Bearer")

	switch state {
	case SessionNoToken:
		core.JSONError(w, core.UnauthorizedError("not authenticated"))
	case SessionExpired:
		core.JSONError(w, core.TokenExpiredError())
	case SessionWrongType, SessionMalformed:
		core.JSONError(w, core.TokenInvalidError())
	case SessionUserMissing:
		core.JSONError(w, core.UnauthorizedError("user not found"))
	case SessionUserInactive:
		core.JSONError(w, core.UnauthorizedError("inactive user"))
	default:
		core.InternalServerError(w, err)
	}
}
