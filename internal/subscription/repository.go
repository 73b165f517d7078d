// AngelaMos | 2026
// repository.go

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/quizforge/internal/core"
)

type Repository interface {
	Current(ctx context.Context, userID string) (*Subscription, error)
	CountQuestionsThisMonth(ctx context.Context, userID string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Current returns the most recently started subscription that is active and
// not yet ended.
func (r *repository) Current(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	query := `
		SELECT id, user_id, plan_name, start_date, end_date, is_active
		FROM subscriptions
		WHERE user_id = $1 AND is_active = TRUE AND end_date > NOW()
		ORDER BY start_date DESC
		LIMIT 1`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("current subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("current subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) CountQuestionsThisMonth(
	ctx context.Context,
	userID string,
) (int, error) {
	query := `
		SELECT COALESCE(SUM(generated), 0)
		FROM question_generations
		WHERE user_id = $1 AND created_at >= date_trunc('month', NOW())`

	var n int
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("count monthly questions: %w", err)
	}

	return n, nil
}
