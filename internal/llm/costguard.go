package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MonthlySpendStore reports the cost already accrued by a user from
// persisted notes during a calendar month.
type MonthlySpendStore interface {
	SumMonthlyCost(ctx context.Context, userID uuid.UUID, year int, month time.Month) (float64, error)
}

// CostLimitError signals that a user's monthly AI spend cap is exhausted.
// It maps to HTTP 402 and must never be swallowed by the provider-failure
// fallback.
type CostLimitError struct {
	CurrentCost float64
	Limit       float64
}

func (e *CostLimitError) Error() string {
	return fmt.Sprintf("Monthly cost limit of $%.2f exceeded. Current: $%.4f", e.Limit, e.CurrentCost)
}

// CostGuard blocks further paid generation once a user's summed monthly
// spend crosses the configured limit. The check runs after the provider
// call returns, against the cost the call actually incurred.
type CostGuard struct {
	notes MonthlySpendStore
	limit float64
}

func NewCostGuard(notes MonthlySpendStore, limitUSD float64) *CostGuard {
	return &CostGuard{notes: notes, limit: limitUSD}
}

func (g *CostGuard) Limit() float64 {
	return g.limit
}

// Check sums the user's spend for the current month and fails with a
// CostLimitError if adding newCost would exceed (or the sum already
// exceeds) the limit. Free calls pass without a query.
func (g *CostGuard) Check(ctx context.Context, userID uuid.UUID, newCost float64) error {
	if newCost <= 0 {
		return nil
	}

	now := time.Now()
	monthly, err := g.notes.SumMonthlyCost(ctx, userID, now.Year(), now.Month())
	if err != nil {
		return fmt.Errorf("failed to sum monthly cost: %w", err)
	}

	if monthly+newCost > g.limit {
		return &CostLimitError{CurrentCost: monthly, Limit: g.limit}
	}

	return nil
}
