// AngelaMos | 2026
// entity.go

package document

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingDimensions matches the vector column and the default embedding
// model (all-mpnet-base-v2).
const EmbeddingDimensions = 768

type Document struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Filename   string    `db:"filename"`
	StorageKey string    `db:"storage_key"`
	SizeBytes  int64     `db:"size_bytes"`
	TotalPages int       `db:"total_pages"`
	ChunkCount int       `db:"chunk_count"`
	CreatedAt  time.Time `db:"created_at"`
}

type Chunk struct {
	ID         string          `db:"id"`
	DocumentID string          `db:"document_id"`
	Index      int             `db:"chunk_index"`
	Page       int             `db:"page"`
	Content    string          `db:"content"`
	Embedding  pgvector.Vector `db:"embedding"`
}

// Match is a chunk returned by similarity search, nearest first.
type Match struct {
	ChunkIndex int     `db:"chunk_index"`
	Page       int     `db:"page"`
	Content    string  `db:"content"`
	Distance   float64 `db:"distance"`
}
