// AngelaMos | 2026
// handler.go

package protected

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/middleware"
)

type AccessResponse struct {
	Message  string `json:"message"`
	Access   string `json:"access"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes mounts one route per access level so clients can check
// what the current credentials allow. The public route runs behind
// optionalAuth and echoes the caller when a valid session is present.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/protected", func(r chi.Router) {
		r.With(optionalAuth).Get("/public", h.Public)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Get("/authenticated", h.respond("This is a protected route", "authenticated"))
			r.With(middleware.RequireVerified).
				Get("/verified", h.respond("This is a verified route", "verified"))
			r.With(middleware.RequireRole(middleware.AnyRole...)).
				Get("/user", h.respond("This is a user route", "user"))
			r.With(middleware.RequireAdminOrModerator).
				Get("/moderator", h.respond("This is a moderator route", "moderator"))
			r.With(middleware.RequireAdmin).
				Get("/admin", h.respond("This is an admin route", "admin"))
		})
	})
}

func (h *Handler) Public(w http.ResponseWriter, r *http.Request) {
	resp := AccessResponse{Message: "This is a public route", Access: "public"}

	if middleware.IsAuthenticated(r.Context()) {
		p := middleware.GetPrincipal(r.Context())
		resp.UserID = p.ID
		resp.Username = p.Username
		resp.Role = p.Role
	}

	core.OK(w, resp)
}

func (h *Handler) respond(message, access string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := middleware.GetPrincipal(r.Context())
		if p == nil {
			core.JSONError(w, core.UnauthorizedError("authentication required"))
			return
		}

		core.OK(w, AccessResponse{
			Message:  message,
			Access:   access,
			UserID:   p.ID,
			Username: p.Username,
			Role:     p.Role,
		})
	}
}
