// AngelaMos | 2026
// plan.go

package subscription

import (
	"strings"
	"time"
)

const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Unlimited marks a limit that is never reached.
const Unlimited = -1

type Subscription struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	PlanName  string    `db:"plan_name"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	IsActive  bool      `db:"is_active"`
}

type Limits struct {
	MaxDocuments     int
	MonthlyQuestions int
}

// LimitsFor returns the quotas of a plan. Plans other than free and pro are
// treated as enterprise.
func LimitsFor(plan string) Limits {
	switch NormalizePlan(plan) {
	case PlanFree:
		return Limits{MaxDocuments: 3, MonthlyQuestions: Unlimited}
	case PlanPro:
		return Limits{MaxDocuments: 10, MonthlyQuestions: Unlimited}
	default:
		return Limits{MaxDocuments: Unlimited, MonthlyQuestions: Unlimited}
	}
}

func NormalizePlan(plan string) string {
	plan = strings.ToLower(strings.TrimSpace(plan))
	if plan == "" {
		return PlanFree
	}
	return plan
}

func withinLimit(limit, used int) bool {
	return limit == Unlimited || used < limit
}
