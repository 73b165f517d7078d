// AngelaMos | 2026
// repository.go

package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/carterperez-dev/quizforge/internal/core"
)

type Repository interface {
	CreateWithChunks(ctx context.Context, doc *Document, chunks []Chunk) error
	GetByID(ctx context.Context, id string) (*Document, error)
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, documentID string, query pgvector.Vector, k int) ([]Match, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const documentColumns = `id, user_id, filename, storage_key, size_bytes,
		       total_pages, chunk_count, created_at`

// CreateWithChunks writes the document row and all of its chunks in one
// transaction.
func (r *repository) CreateWithChunks(
	ctx context.Context,
	doc *Document,
	chunks []Chunk,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &doc.CreatedAt, `
			INSERT INTO documents (
				id, user_id, filename, storage_key, size_bytes, total_pages, chunk_count
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at`,
			doc.ID,
			doc.UserID,
			doc.Filename,
			doc.StorageKey,
			doc.SizeBytes,
			doc.TotalPages,
			doc.ChunkCount,
		)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}

		for i := range chunks {
			c := &chunks[i]
			if c.ID == "" {
				c.ID = uuid.New().String()
			}
			c.DocumentID = doc.ID

			_, err := tx.ExecContext(ctx, `
				INSERT INTO document_chunks (
					id, document_id, chunk_index, page, content, embedding
				) VALUES ($1, $2, $3, $4, $5, $6)`,
				c.ID,
				c.DocumentID,
				c.Index,
				c.Page,
				c.Content,
				c.Embedding,
			)
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.Index, err)
			}
		}

		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	var doc Document
	err := r.db.GetContext(ctx, &doc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get document: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC`

	docs := []Document{}
	if err := r.db.SelectContext(ctx, &docs, query, userID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return docs, nil
}

func (r *repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM documents WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Delete removes a document. Its chunks go with it by cascade.
func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete document: %w", core.ErrNotFound)
	}

	return nil
}

// Search returns the k chunks of one document nearest to query by cosine
// distance. The document's chunks are materialized first so the ranking is
// an exact scan and never a filtered approximate index scan.
func (r *repository) Search(
	ctx context.Context,
	documentID string,
	query pgvector.Vector,
	k int,
) ([]Match, error) {
	q := `
		WITH candidates AS MATERIALIZED (
			SELECT chunk_index, page, content, embedding
			FROM document_chunks
			WHERE document_id = $1
		)
		SELECT chunk_index, page, content, embedding <=> $2 AS distance
		FROM candidates
		ORDER BY distance, chunk_index
		LIMIT $3`

	matches := []Match{}
	if err := r.db.SelectContext(ctx, &matches, q, documentID, query, k); err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	return matches, nil
}
