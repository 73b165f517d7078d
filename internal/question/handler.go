// AngelaMos | 2026
// handler.go

package question

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/middleware"
	"github.com/carterperez-dev/quizforge/internal/subscription"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts generation behind authentication and the plan-based
// rate limiter.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiter func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		if limiter != nil {
			r.Use(limiter)
		}

		r.Post("/v1/generate-questions", h.Generate)
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if req.NumQuestions == 0 {
		req.NumQuestions = DefaultNumQuestions
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Generate(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "PDF")
		case errors.Is(err, subscription.ErrQuestionLimit):
			core.Forbidden(w, "Monthly question generation limit reached")
		case errors.Is(err, ErrEmptyPool):
			core.UnprocessableEntity(w, "No content found in PDF to generate questions from")
		case errors.Is(err, core.ErrUpstream):
			core.JSONError(w, core.UpstreamError("question generation backend unavailable"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}
