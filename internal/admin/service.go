// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/quizforge/internal/core"
)

var ErrSelfDelete = errors.New("admins cannot delete their own account")

type UserRemover interface {
	RemoveUser(ctx context.Context, id string) error
}

type DocumentRemover interface {
	Remove(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	users  UserRemover
	docs   DocumentRemover
	logger *slog.Logger
}

func NewService(
	repo Repository,
	users UserRemover,
	docs DocumentRemover,
	logger *slog.Logger,
) *Service {
	return &Service{repo: repo, users: users, docs: docs, logger: logger}
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) ListUsers(ctx context.Context, params ListParams) ([]UserRow, int, error) {
	return s.repo.ListUsers(ctx, params)
}

func (s *Service) ListDocuments(ctx context.Context, params ListParams) ([]DocumentRow, int, error) {
	return s.repo.ListDocuments(ctx, params)
}

// DeleteUser soft-deletes targetID and ends its sessions.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfDelete
	}
	if _, err := uuid.Parse(targetID); err != nil {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	if err := s.users.RemoveUser(ctx, targetID); err != nil {
		return err
	}

	s.logger.Info("user removed by admin", "admin_id", actorID, "user_id", targetID)
	return nil
}

func (s *Service) DeleteDocument(ctx context.Context, actorID, id string) error {
	if err := s.docs.Remove(ctx, id); err != nil {
		return err
	}

	s.logger.Info("document removed by admin", "admin_id", actorID, "document_id", id)
	return nil
}
