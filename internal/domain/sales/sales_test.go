package sales

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promo-pricing/internal/domain/purchase"
)

type mockRepo struct {
	rows  []Row
	err   error
	calls int
}

func (m *mockRepo) AggregateByCurrency(context.Context) ([]Row, error) {
	m.calls++
	return m.rows, m.err
}

type mapCache struct {
	rows        []Row
	present     bool
	gen         int64
	getErr      error
	genErr      error
	invalidated int
	sets        int
}

func (c *mapCache) Get(context.Context) ([]Row, bool, error) {
	return c.rows, c.present, c.getErr
}

func (c *mapCache) Generation(context.Context) (int64, error) {
	return c.gen, c.genErr
}

func (c *mapCache) Set(_ context.Context, gen int64, rows []Row) error {
	if gen != c.gen {
		return nil
	}
	c.rows, c.present = rows, true
	c.sets++
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.rows, c.present = nil, false
	c.gen++
	c.invalidated++
	return nil
}

// commitDuringQueryRepo commits a purchase while the first aggregate query is
// running: the query sees the old snapshot, the purchase listener fires
// before the query returns.
type commitDuringQueryRepo struct {
	svc   *Service
	count int64
	calls int
}

func (r *commitDuringQueryRepo) AggregateByCurrency(ctx context.Context) ([]Row, error) {
	r.calls++
	snapshot := []Row{{Currency: "USD", PurchaseCount: r.count}}
	if r.calls == 1 {
		r.count++
		if err := r.svc.PurchaseCreated(ctx, &purchase.Purchase{ID: r.count}); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

func usdRow() Row {
	return Row{
		Currency:          "USD",
		TotalRegularPrice: decimal.RequireFromString("280.00"),
		TotalDiscount:     decimal.RequireFromString("25.00"),
		PurchaseCount:     2,
	}
}

func TestReport_Empty(t *testing.T) {
	svc := NewService(&mockRepo{}, nil)

	rows, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestReport_RepoError(t *testing.T) {
	svc := NewService(&mockRepo{err: errors.New("db down")}, nil)

	_, err := svc.Report(context.Background())
	require.Error(t, err)
}

func TestReport_ReadThrough(t *testing.T) {
	repo := &mockRepo{rows: []Row{usdRow()}}
	cache := &mapCache{}
	svc := NewService(repo, cache)

	first, err := svc.Report(context.Background())
	require.NoError(t, err)
	second, err := svc.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, svc.PurchaseCreated(context.Background(), &purchase.Purchase{ID: 1}))
	assert.Equal(t, 1, cache.invalidated)

	_, err = svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestReport_CacheFailureFallsBack(t *testing.T) {
	repo := &mockRepo{rows: []Row{usdRow()}}
	svc := NewService(repo, &mapCache{getErr: errors.New("redis down")})

	rows, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, repo.calls)
}

func TestReport_PurchaseDuringQueryIsNotHidden(t *testing.T) {
	repo := &commitDuringQueryRepo{count: 1}
	cache := &mapCache{}
	svc := NewService(repo, cache)
	repo.svc = svc

	first, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first[0].PurchaseCount)
	assert.False(t, cache.present, "stale report must not be cached")

	second, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), second[0].PurchaseCount)
	assert.Equal(t, 2, repo.calls)
	assert.True(t, cache.present)
}

func TestReport_GenerationFailureSkipsCaching(t *testing.T) {
	repo := &mockRepo{rows: []Row{usdRow()}}
	cache := &mapCache{genErr: errors.New("redis down")}
	svc := NewService(repo, cache)

	rows, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Zero(t, cache.sets)
}
