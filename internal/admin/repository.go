// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/quizforge/internal/core"
)

type Totals struct {
	TotalUsers              int `db:"total_users"`
	ActiveUsers             int `db:"active_users"`
	VerifiedUsers           int `db:"verified_users"`
	TotalPDFs               int `db:"total_pdfs"`
	TotalChunks             int `db:"total_chunks"`
	TotalQuestionsGenerated int `db:"total_questions_generated"`
}

type bucket struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

type Stats struct {
	Totals
	UsersByRole    map[string]int
	UsersByTier    map[string]int
	RecentActivity []Activity
}

const (
	ActivityUpload     = "pdf_upload"
	ActivityGeneration = "question_generation"

	recentActivityLimit = 10
)

type Activity struct {
	Type      string    `db:"kind"`
	UserID    string    `db:"user_id"`
	UserEmail string    `db:"user_email"`
	Timestamp time.Time `db:"occurred_at"`
	Details   string    `db:"details"`
}

// currentPlanJoin attaches the user's newest live subscription as s.
const currentPlanJoin = `
		LEFT JOIN LATERAL (
			SELECT plan_name
			FROM subscriptions
			WHERE user_id = u.id AND is_active = TRUE AND end_date > NOW()
			ORDER BY start_date DESC
			LIMIT 1
		) s ON TRUE`

type UserRow struct {
	ID         string    `db:"id"`
	Email      string    `db:"email"`
	Username   string    `db:"username"`
	FullName   *string   `db:"full_name"`
	Role       string    `db:"role"`
	IsActive   bool      `db:"is_active"`
	IsVerified bool      `db:"is_verified"`
	CreatedAt  time.Time `db:"created_at"`
	PDFCount   int       `db:"pdf_count"`

	SubscriptionTier string `db:"subscription_tier"`
	QuestionCount    int    `db:"question_count"`
}

type DocumentRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Username   string    `db:"username"`
	UserEmail  string    `db:"user_email"`
	Filename   string    `db:"filename"`
	SizeBytes  int64     `db:"size_bytes"`
	TotalPages int       `db:"total_pages"`
	ChunkCount int       `db:"chunk_count"`
	CreatedAt  time.Time `db:"created_at"`
}

type ListParams struct {
	Skip   int
	Limit  int
	Search string
	UserID string
}

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

func (p *ListParams) Normalize() {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit < 1 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
}

type Repository interface {
	Stats(ctx context.Context) (*Stats, error)
	ListUsers(ctx context.Context, params ListParams) ([]UserRow, int, error)
	ListDocuments(ctx context.Context, params ListParams) ([]DocumentRow, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	totalsQuery := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE deleted_at IS NULL) AS total_users,
			(SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND is_active) AS active_users,
			(SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND is_verified) AS verified_users,
			(SELECT COUNT(*) FROM documents) AS total_pdfs,
			(SELECT COUNT(*) FROM document_chunks) AS total_chunks,
			(SELECT COALESCE(SUM(generated), 0) FROM question_generations) AS total_questions_generated`

	var stats Stats
	if err := r.db.GetContext(ctx, &stats.Totals, totalsQuery); err != nil {
		return nil, fmt.Errorf("stats totals: %w", err)
	}

	roleQuery := `
		SELECT role AS key, COUNT(*) AS count
		FROM users
		WHERE deleted_at IS NULL
		GROUP BY role`

	byRole, err := r.buckets(ctx, roleQuery)
	if err != nil {
		return nil, fmt.Errorf("stats by role: %w", err)
	}
	stats.UsersByRole = byRole

	tierQuery := `
		SELECT COALESCE(s.plan_name, 'free') AS key, COUNT(*) AS count
		FROM users u` + currentPlanJoin + `
		WHERE u.deleted_at IS NULL
		GROUP BY 1`

	byTier, err := r.buckets(ctx, tierQuery)
	if err != nil {
		return nil, fmt.Errorf("stats by tier: %w", err)
	}
	stats.UsersByTier = byTier

	activityQuery := `
		SELECT kind, user_id, user_email, occurred_at, details
		FROM (
			SELECT '` + ActivityUpload + `' AS kind, d.user_id, u.email AS user_email,
			       d.created_at AS occurred_at, 'uploaded ' || d.filename AS details
			FROM documents d
			JOIN users u ON u.id = d.user_id
			UNION ALL
			SELECT '` + ActivityGeneration + `', g.user_id, u.email,
			       g.created_at, 'generated ' || g.generated || ' questions'
			FROM question_generations g
			JOIN users u ON u.id = g.user_id
		) activity
		ORDER BY occurred_at DESC
		LIMIT $1`

	stats.RecentActivity = []Activity{}
	if err := r.db.SelectContext(ctx, &stats.RecentActivity, activityQuery, recentActivityLimit); err != nil {
		return nil, fmt.Errorf("stats recent activity: %w", err)
	}

	return &stats, nil
}

func (r *repository) buckets(ctx context.Context, query string) (map[string]int, error) {
	var rows []bucket
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	out := make(map[string]int, len(rows))
	for _, b := range rows {
		out[b.Key] += b.Count
	}
	return out, nil
}

func (r *repository) ListUsers(
	ctx context.Context,
	params ListParams,
) ([]UserRow, int, error) {
	params.Normalize()

	conditions := []string{"u.deleted_at IS NULL"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(u.email ILIKE $%d OR u.username ILIKE $%d OR u.full_name ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM users u WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT u.id, u.email, u.username, u.full_name, u.role,
		       u.is_active, u.is_verified, u.created_at,
		       (SELECT COUNT(*) FROM documents d WHERE d.user_id = u.id) AS pdf_count,
		       COALESCE(s.plan_name, 'free') AS subscription_tier,
		       (SELECT COALESCE(SUM(g.generated), 0)
		          FROM question_generations g WHERE g.user_id = u.id) AS question_count
		FROM users u`+currentPlanJoin+`
		WHERE %s
		ORDER BY u.created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Skip)

	var rows []UserRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return rows, total, nil
}

func (r *repository) ListDocuments(
	ctx context.Context,
	params ListParams,
) ([]DocumentRow, int, error) {
	params.Normalize()

	where := ""
	var args []any
	argIdx := 1

	if params.UserID != "" {
		where = fmt.Sprintf("WHERE d.user_id = $%d", argIdx)
		args = append(args, params.UserID)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM documents d " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.user_id, u.username, u.email AS user_email, d.filename, d.size_bytes,
		       d.total_pages, d.chunk_count, d.created_at
		FROM documents d
		JOIN users u ON u.id = d.user_id
		%s
		ORDER BY d.created_at DESC
		LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Skip)

	var rows []DocumentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	return rows, total, nil
}
