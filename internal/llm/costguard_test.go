package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpendStore struct {
	sum float64
	err error

	calls int
}

func (f *fakeSpendStore) SumMonthlyCost(ctx context.Context, userID uuid.UUID, year int, month time.Month) (float64, error) {
	f.calls++
	return f.sum, f.err
}

func TestCostGuard_AllowsUnderLimit(t *testing.T) {
	t.Parallel()

	store := &fakeSpendStore{sum: 0.05}
	guard := NewCostGuard(store, 0.10)

	err := guard.Check(context.Background(), uuid.New(), 0.01)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestCostGuard_BlocksWhenSumWouldExceedLimit(t *testing.T) {
	t.Parallel()

	store := &fakeSpendStore{sum: 0.095}
	guard := NewCostGuard(store, 0.10)

	err := guard.Check(context.Background(), uuid.New(), 0.01)
	require.Error(t, err)

	var limitErr *CostLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.InDelta(t, 0.095, limitErr.CurrentCost, 1e-9)
	assert.InDelta(t, 0.10, limitErr.Limit, 1e-9)
}

func TestCostGuard_BlocksWhenAlreadyOverLimit(t *testing.T) {
	t.Parallel()

	store := &fakeSpendStore{sum: 0.25}
	guard := NewCostGuard(store, 0.10)

	var limitErr *CostLimitError
	err := guard.Check(context.Background(), uuid.New(), 0.001)
	require.ErrorAs(t, err, &limitErr)
}

func TestCostGuard_FreeCallsSkipTheQuery(t *testing.T) {
	t.Parallel()

	store := &fakeSpendStore{sum: 99}
	guard := NewCostGuard(store, 0.10)

	require.NoError(t, guard.Check(context.Background(), uuid.New(), 0))
	assert.Equal(t, 0, store.calls)
}

func TestCostGuard_PropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	store := &fakeSpendStore{err: errors.New("db down")}
	guard := NewCostGuard(store, 0.10)

	err := guard.Check(context.Background(), uuid.New(), 0.01)
	require.Error(t, err)

	var limitErr *CostLimitError
	assert.False(t, errors.As(err, &limitErr), "store failure is not a limit breach")
}
