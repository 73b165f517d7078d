// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/quizforge/internal/core"
)

type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindValidByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	CreateVerification(ctx context.Context, userID, tokenHash string, ttl time.Duration) error
	ConsumeVerification(ctx context.Context, tokenHash string) (string, error)
	CreatePasswordReset(ctx context.Context, userID, tokenHash string, ttl time.Duration) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, user_agent, ip_address
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *repository) FindValidByHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	query := `
		SELECT
			id, user_id, token_hash, expires_at, revoked, revoked_at,
			user_agent, ip_address, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
			AND revoked = FALSE
			AND expires_at > NOW()`

	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

// Revoke flips a token to revoked. Unknown or already revoked hashes are a
// no-op so logout can be repeated safely.
func (r *repository) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE token_hash = $1 AND revoked = FALSE`

	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

func (r *repository) RevokeAllForUser(
	ctx context.Context,
	userID string,
) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE user_id = $1 AND revoked = FALSE`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all user tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke all user tokens: %w", err)
	}

	return rows, nil
}

func (r *repository) CreateVerification(
	ctx context.Context,
	userID, tokenHash string,
	ttl time.Duration,
) error {
	return r.createOneTime(ctx, kindVerification, userID, tokenHash, ttl)
}

func (r *repository) ConsumeVerification(
	ctx context.Context,
	tokenHash string,
) (string, error) {
	return r.consumeOneTime(ctx, kindVerification, tokenHash)
}

func (r *repository) CreatePasswordReset(
	ctx context.Context,
	userID, tokenHash string,
	ttl time.Duration,
) error {
	return r.createOneTime(ctx, kindPasswordReset, userID, tokenHash, ttl)
}

func (r *repository) ConsumePasswordReset(
	ctx context.Context,
	tokenHash string,
) (string, error) {
	return r.consumeOneTime(ctx, kindPasswordReset, tokenHash)
}

func (r *repository) createOneTime(
	ctx context.Context,
	kind oneTimeKind,
	userID, tokenHash string,
	ttl time.Duration,
) error {
	//nolint:gosec // table name is one of two package constants
	query := `
		INSERT INTO ` + string(kind) + ` (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New().String(),
		userID,
		tokenHash,
		time.Now().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", kind, err)
	}

	return nil
}

// consumeOneTime deletes a live token and returns its owner in one
// statement, so two concurrent redemptions cannot both succeed.
func (r *repository) consumeOneTime(
	ctx context.Context,
	kind oneTimeKind,
	tokenHash string,
) (string, error) {
	//nolint:gosec // table name is one of two package constants
	query := `
		DELETE FROM ` + string(kind) + `
		WHERE token_hash = $1 AND expires_at > NOW()
		RETURNING user_id`

	var userID string
	err := r.db.GetContext(ctx, &userID, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("consume %s: %w", kind, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("consume %s: %w", kind, err)
	}

	return userID, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	var total int64

	for _, table := range []string{
		string(kindVerification),
		string(kindPasswordReset),
	} {
		//nolint:gosec // table name is one of two package constants
		result, err := r.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE expires_at < NOW()`)
		if err != nil {
			return total, fmt.Errorf("delete expired %s: %w", table, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("delete expired %s: %w", table, err)
		}
		total += rows
	}

	return total, nil
}
