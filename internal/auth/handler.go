// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/quizforge/internal/config"
	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/middleware"
)

const maxFormBytes = 64 << 10

// RouteLimits are optional per-route rate limit middlewares.
type RouteLimits struct {
	Login         func(http.Handler) http.Handler
	Register      func(http.Handler) http.Handler
	PasswordReset func(http.Handler) http.Handler
}

type Handler struct {
	service   *Service
	validator *validator.Validate
	cookies   cookieWriter
}

func NewHandler(service *Service, cookieCfg config.CookieConfig) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
		cookies: cookieWriter{
			cfg:        cookieCfg,
			accessTTL:  service.tokens.AccessTTL(),
			refreshTTL: service.tokens.RefreshTTL(),
		},
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limits RouteLimits,
) {
	r.Route("/auth", func(r chi.Router) {
		r.With(orPass(limits.Register)).Post("/register", h.Register)
		r.With(orPass(limits.Login)).Post("/login", h.LoginForm)
		r.With(orPass(limits.Login)).Post("/login/json", h.LoginJSON)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/verify-email", h.VerifyEmail)
		r.With(orPass(limits.PasswordReset)).Post("/request-password-reset", h.RequestPasswordReset)
		r.With(orPass(limits.PasswordReset)).Post("/reset-password", h.ResetPassword)

		r.With(authenticator).Post("/resend-verification", h.ResendVerification)
	})
}

func orPass(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			core.JSONError(w, core.DuplicateError("email"))
		case errors.Is(err, ErrUsernameExists):
			core.JSONError(w, core.DuplicateError("username"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, toUserResponse(user))
}

// LoginForm accepts the OAuth2 password form, where "username" carries the
// email address.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		core.BadRequest(w, "invalid form body")
		return
	}

	h.login(w, r, LoginRequest{
		Email:    strings.ToLower(strings.TrimSpace(r.PostForm.Get("username"))),
		Password: r.PostForm.Get("password"),
	})
}

func (h *Handler) LoginJSON(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	h.login(w, r, req)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, req LoginRequest) {
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	session, err := h.service.Login(
		r.Context(),
		req.Email,
		req.Password,
		r.UserAgent(),
		middleware.ClientIP(r),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeBearerChallenge(w, "Incorrect email or password")
		case errors.Is(err, ErrInactiveUser):
			writeBearerChallenge(w, "Inactive user")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.cookies.writeSession(w, session)
	core.OK(w, session.TokenResponse())
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	submitted, err := submittedCSRF(r)
	if err != nil {
		core.BadRequest(w, "could not read request body")
		return
	}

	session, err := h.service.Refresh(
		r.Context(),
		cookieValue(r, RefreshTokenCookie),
		cookieValue(r, CSRFTokenCookie),
		submitted,
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshMissing):
			core.Unauthorized(w, "Refresh token missing")
		case errors.Is(err, ErrCSRFMissing):
			core.Unauthorized(w, "CSRF token missing")
		case errors.Is(err, ErrCSRFMismatch):
			core.Unauthorized(w, "Invalid CSRF token")
		case errors.Is(err, ErrRefreshInvalid):
			core.Unauthorized(w, "Invalid or expired refresh token")
		case errors.Is(err, ErrSessionUser):
			core.Unauthorized(w, "User not found or inactive")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.cookies.writeSession(w, session)
	core.OK(w, session.TokenResponse())
}

// submittedCSRF returns the CSRF token from the header or, failing that,
// from a JSON body. A body that is not JSON counts as no token.
func submittedCSRF(r *http.Request) (string, error) {
	if token := r.Header.Get(CSRFHeader); token != "" {
		return token, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
	if err != nil {
		return "", fmt.Errorf("read refresh body: %w", err)
	}

	var req RefreshRequest
	if len(body) > 0 && json.Unmarshal(body, &req) == nil {
		return req.CSRFToken, nil
	}
	return "", nil
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), cookieValue(r, RefreshTokenCookie)); err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.cookies.clearSession(w)
	core.Message(w, "Successfully logged out")
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, ErrInvalidVerifyToken) {
			core.BadRequest(w, "Invalid or expired verification token")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Message(w, "Email successfully verified")
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	err := h.service.ResendVerification(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyVerified):
			core.BadRequest(w, "Email already verified")
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Message(w, "Verification email sent")
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Message(w, "If the email exists, a password reset link has been sent")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			core.BadRequest(w, "Invalid or expired reset token")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Message(w, "Password has been reset successfully")
}

func writeBearerChallenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	core.Unauthorized(w, message)
}
