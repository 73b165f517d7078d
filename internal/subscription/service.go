// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/carterperez-dev/quizforge/internal/core"
)

var (
	ErrDocumentLimit = errors.New("document limit reached for plan")
	ErrQuestionLimit = errors.New("monthly question limit reached for plan")
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CurrentPlan returns the user's plan name, or free when no subscription is
// current.
func (s *Service) CurrentPlan(ctx context.Context, userID string) (string, error) {
	sub, err := s.repo.Current(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return PlanFree, nil
	}
	if err != nil {
		return "", err
	}

	return NormalizePlan(sub.PlanName), nil
}

// CheckDocumentUpload fails with ErrDocumentLimit when owning one more
// document would exceed the plan.
func (s *Service) CheckDocumentUpload(
	ctx context.Context,
	userID string,
	owned int,
) error {
	plan, err := s.CurrentPlan(ctx, userID)
	if err != nil {
		return err
	}

	if !withinLimit(LimitsFor(plan).MaxDocuments, owned) {
		return ErrDocumentLimit
	}

	return nil
}

func (s *Service) CheckQuestionGeneration(ctx context.Context, userID string) error {
	plan, err := s.CurrentPlan(ctx, userID)
	if err != nil {
		return err
	}

	limit := LimitsFor(plan).MonthlyQuestions
	if limit == Unlimited {
		return nil
	}

	used, err := s.repo.CountQuestionsThisMonth(ctx, userID)
	if err != nil {
		return err
	}
	if !withinLimit(limit, used) {
		return ErrQuestionLimit
	}

	return nil
}

// ResolvePlan is a middleware.PlanResolver. Lookup failures degrade to free.
func (s *Service) ResolvePlan(ctx context.Context, userID string) string {
	plan, err := s.CurrentPlan(ctx, userID)
	if err != nil {
		s.logger.Warn("resolve plan failed", "user_id", userID, "error", err)
		return PlanFree
	}
	return plan
}
