// AngelaMos | 2026
// handler.go

package document

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/middleware"
	"github.com/carterperez-dev/quizforge/internal/subscription"
)

const uploadField = "file"

type UploadResponse struct {
	PdfID      string `json:"pdf_id"`
	Filename   string `json:"filename"`
	TotalPages int    `json:"total_pages"`
	ChunkCount int    `json:"chunk_count"`
}

type DocumentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	TotalPages int       `json:"total_pages"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToDocumentResponse(d *Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID,
		UserID:     d.UserID,
		Filename:   d.Filename,
		SizeBytes:  d.SizeBytes,
		TotalPages: d.TotalPages,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
	}
}

func ToDocumentResponseList(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, ToDocumentResponse(&docs[i]))
	}
	return out
}

type Handler struct {
	service       *Service
	maxUploadSize int64
}

func NewHandler(service *Service, maxUploadSize int64) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSize}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/v1/upload-pdf", h.Upload)
		r.Get("/v1/pdfs", h.List)
		r.Delete("/v1/pdfs/{id}", h.Delete)
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, core.NewAppError(
				err,
				"file exceeds the upload size limit",
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
			))
			return
		}
		core.BadRequest(w, "No file provided")
		return
	}
	defer file.Close() //nolint:errcheck

	if !IsPDFName(header.Filename) {
		core.BadRequest(w, "Only PDF files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		core.BadRequest(w, "could not read uploaded file")
		return
	}

	doc, err := h.service.Upload(
		r.Context(),
		middleware.GetUserID(r.Context()),
		header.Filename,
		data,
	)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	core.Created(w, UploadResponse{
		PdfID:      doc.ID,
		Filename:   doc.Filename,
		TotalPages: doc.TotalPages,
		ChunkCount: doc.ChunkCount,
	})
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotPDF):
		core.BadRequest(w, "Only PDF files are allowed")
	case errors.Is(err, ErrEmptyFile):
		core.BadRequest(w, "No file provided")
	case errors.Is(err, ErrUnreadablePDF):
		core.BadRequest(w, ErrUnreadablePDF.Error())
	case errors.Is(err, ErrNoText):
		core.BadRequest(w, ErrNoText.Error())
	case errors.Is(err, subscription.ErrDocumentLimit):
		core.Forbidden(w, "PDF upload limit reached for your subscription tier")
	default:
		core.InternalServerError(w, err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToDocumentResponseList(docs))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteOwned(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "PDF")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}
