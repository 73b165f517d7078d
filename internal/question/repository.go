// AngelaMos | 2026
// repository.go

package question

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/quizforge/internal/core"
)

// Generation is one recorded generate-questions call. Monthly quotas sum
// Generated.
type Generation struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	DocumentID    string    `db:"document_id"`
	Requested     int       `db:"requested"`
	Generated     int       `db:"generated"`
	FallbackCount int       `db:"fallback_count"`
	CreatedAt     time.Time `db:"created_at"`
}

type Repository interface {
	Record(ctx context.Context, g *Generation) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Record(ctx context.Context, g *Generation) error {
	query := `
		INSERT INTO question_generations
			(id, user_id, document_id, requested, generated, fallback_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		g.ID,
		g.UserID,
		g.DocumentID,
		g.Requested,
		g.Generated,
		g.FallbackCount,
	).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}

	return nil
}
