// AngelaMos | 2026
// rbac.go

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/carterperez-dev/quizforge/internal/core"
)

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

var (
	AdminOnly        = []string{RoleAdmin}
	AdminOrModerator = []string{RoleAdmin, RoleModerator}
	AnyRole          = []string{RoleAdmin, RoleModerator, RoleUser}
)

func ValidRole(role string) bool {
	return slices.Contains(AnyRole, role)
}

// Authorize reports whether role is in the allowed set.
func Authorize(role string, allowed []string) error {
	if role == "" {
		return fmt.Errorf("authorize: %w", core.ErrUnauthorized)
	}
	if !slices.Contains(allowed, role) {
		return fmt.Errorf("authorize %q: %w", role, core.ErrForbidden)
	}
	return nil
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := slices.Clone(roles)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := Authorize(GetUserRole(r.Context()), allowed)
			switch {
			case errors.Is(err, core.ErrUnauthorized):
				core.JSONError(w, core.UnauthorizedError("authentication required"))
				return
			case err != nil:
				core.JSONError(w, core.ForbiddenError("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(AdminOnly...)(next)
}

func RequireAdminOrModerator(next http.Handler) http.Handler {
	return RequireRole(AdminOrModerator...)(next)
}

func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipal(r.Context())
		if p == nil {
			core.JSONError(w, core.UnauthorizedError("authentication required"))
			return
		}

		if !p.IsVerified {
			core.JSONError(w, core.ForbiddenError("email not verified"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
