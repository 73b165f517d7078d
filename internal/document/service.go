// AngelaMos | 2026
// service.go

package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/carterperez-dev/quizforge/internal/config"
	"github.com/carterperez-dev/quizforge/internal/core"
)

var (
	ErrNotPDF        = errors.New("only PDF files are allowed")
	ErrEmptyFile     = errors.New("no file provided")
	ErrUnreadablePDF = errors.New("file could not be read as a PDF")
	ErrNoText        = errors.New("PDF contains no extractable text")
)

const pdfContentType = "application/pdf"

var tracer = otel.Tracer("quizforge/document")

// PageLoader extracts one schema.Document per PDF page.
type PageLoader func(ctx context.Context, r io.ReaderAt, size int64) ([]schema.Document, error)

func LoadPDFPages(ctx context.Context, r io.ReaderAt, size int64) ([]schema.Document, error) {
	return documentloaders.NewPDF(r, size).Load(ctx)
}

// Quota decides whether a user holding owned documents may add another.
type Quota interface {
	CheckDocumentUpload(ctx context.Context, userID string, owned int) error
}

type Service struct {
	repo     Repository
	blobs    BlobStore
	embedder embeddings.Embedder
	quota    Quota
	load     PageLoader
	splitter textsplitter.TextSplitter
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	blobs BlobStore,
	embedder embeddings.Embedder,
	quota Quota,
	cfg config.DocumentsConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:     repo,
		blobs:    blobs,
		embedder: embedder,
		quota:    quota,
		load:     LoadPDFPages,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		logger: logger,
	}
}

// IsPDFName reports whether filename carries a .pdf extension.
func IsPDFName(filename string) bool {
	return strings.EqualFold(path.Ext(filename), ".pdf")
}

// Upload stores the file, indexes its chunks and records the document.
func (s *Service) Upload(
	ctx context.Context,
	userID, filename string,
	data []byte,
) (*Document, error) {
	ctx, span := tracer.Start(ctx, "document.upload")
	defer span.End()

	if !IsPDFName(filename) {
		return nil, ErrNotPDF
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	owned, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.quota.CheckDocumentUpload(ctx, userID, owned); err != nil {
		return nil, err
	}

	pages, err := s.loadPages(ctx, data)
	if err != nil {
		return nil, err
	}

	chunks, err := s.split(pages)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoText
	}

	if err := s.embed(ctx, chunks); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, err
	}

	doc := &Document{
		ID:         uuid.New().String(),
		UserID:     userID,
		Filename:   path.Base(filename),
		SizeBytes:  int64(len(data)),
		TotalPages: len(pages),
		ChunkCount: len(chunks),
	}
	doc.StorageKey = path.Join("documents", userID, doc.ID+".pdf")

	if err := s.blobs.Put(ctx, doc.StorageKey, data, pdfContentType); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUpstream, err)
	}

	if err := s.repo.CreateWithChunks(ctx, doc, chunks); err != nil {
		if delErr := s.blobs.Delete(ctx, doc.StorageKey); delErr != nil {
			s.logger.Warn("orphaned blob after failed insert",
				"key", doc.StorageKey,
				"error", delErr,
			)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.Int("document.pages", doc.TotalPages),
		attribute.Int("document.chunks", doc.ChunkCount),
	)
	s.logger.Info("document indexed",
		"document_id", doc.ID,
		"user_id", userID,
		"pages", doc.TotalPages,
		"chunks", doc.ChunkCount,
	)

	return doc, nil
}

// loadPages runs the PDF loader and turns both its errors and its panics on
// malformed xref tables into ErrUnreadablePDF.
func (s *Service) loadPages(ctx context.Context, data []byte) (pages []schema.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("pdf loader panicked", "panic", r)
			pages, err = nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	pages, err = s.load(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadablePDF, err)
	}
	return pages, nil
}

func (s *Service) split(pages []schema.Document) ([]Chunk, error) {
	docs, err := textsplitter.SplitDocuments(s.splitter, pages)
	if err != nil {
		return nil, fmt.Errorf("split pages: %w", err)
	}

	chunks := make([]Chunk, 0, len(docs))
	for _, d := range docs {
		text := strings.TrimSpace(d.PageContent)
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Page:    pageOf(d.Metadata),
			Content: text,
		})
	}

	return chunks, nil
}

func (s *Service) embed(ctx context.Context, chunks []Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed chunks: %w", core.ErrUpstream, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf(
			"%w: embedder returned %d vectors for %d chunks",
			core.ErrUpstream, len(vectors), len(chunks),
		)
	}

	for i := range chunks {
		if len(vectors[i]) != EmbeddingDimensions {
			return fmt.Errorf(
				"%w: embedding has %d dimensions, want %d",
				core.ErrUpstream, len(vectors[i]), EmbeddingDimensions,
			)
		}
		chunks[i].Embedding = pgvector.NewVector(vectors[i])
	}

	return nil
}

func pageOf(meta map[string]any) int {
	switch v := meta["page"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Document, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetOwned returns the document only when userID owns it. Foreign documents
// are reported as not found.
func (s *Service) GetOwned(ctx context.Context, id, userID string) (*Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get document: %w", core.ErrNotFound)
	}

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, fmt.Errorf("get document: %w", core.ErrNotFound)
	}

	return doc, nil
}

func (s *Service) DeleteOwned(ctx context.Context, id, userID string) error {
	doc, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.remove(ctx, doc)
}

// Remove deletes any document and its stored file.
func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("get document: %w", core.ErrNotFound)
	}

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, doc)
}

func (s *Service) remove(ctx context.Context, doc *Document) error {
	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Warn("delete blob failed",
			"document_id", doc.ID,
			"key", doc.StorageKey,
			"error", err,
		)
	}

	return nil
}

// Search embeds query and returns the k nearest chunks of the document.
func (s *Service) Search(
	ctx context.Context,
	documentID, query string,
	k int,
) ([]Match, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", core.ErrUpstream, err)
	}

	return s.repo.Search(ctx, documentID, pgvector.NewVector(vec), k)
}

// Ping reports blob store reachability for readiness checks.
func (s *Service) Ping(ctx context.Context) error {
	return s.blobs.Ping(ctx)
}
