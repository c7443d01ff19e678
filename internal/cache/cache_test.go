package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promo-pricing/internal/domain/sales"
)

func newTestCache(t *testing.T, ttl time.Duration) (*SalesReport, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSalesReport(client, ttl), mr
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Connect(context.Background(), Options{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())

	_, err = Connect(context.Background(), Options{Addr: "127.0.0.1:0"})
	require.Error(t, err)
}

func TestSalesReport_RoundTrip(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	rows := []sales.Row{{
		Currency:          "USD",
		TotalRegularPrice: decimal.RequireFromString("280.00"),
		TotalDiscount:     decimal.RequireFromString("25.50"),
		PurchaseCount:     2,
	}}
	require.NoError(t, c.Set(ctx, 0, rows))
	assert.Equal(t, time.Minute, mr.TTL(reportKey))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "USD", got[0].Currency)
	assert.True(t, rows[0].TotalRegularPrice.Equal(got[0].TotalRegularPrice))
	assert.True(t, rows[0].TotalDiscount.Equal(got[0].TotalDiscount))
	assert.Equal(t, int64(2), got[0].PurchaseCount)
}

func TestSalesReport_EmptyReportIsCached(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, []sales.Row{}))
	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSalesReport_Expiry(t *testing.T) {
	c, mr := newTestCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, []sales.Row{{Currency: "EUR"}}))
	mr.FastForward(2 * time.Second)

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSalesReport_Invalidate(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, []sales.Row{{Currency: "EUR"}}))
	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists(reportKey))

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	// Works with the sales service as a read-through cache.
	svc := sales.NewService(staticRepo{{Currency: "PLN", PurchaseCount: 1}}, c)
	rows, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PLN", rows[0].Currency)
	assert.True(t, mr.Exists(reportKey))
}

func TestSalesReport_CorruptValue(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set(reportKey, "not json"))

	_, _, err := c.Get(context.Background())
	require.Error(t, err)
}

func TestSalesReport_SetIgnoresStaleGeneration(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, []sales.Row{{Currency: "EUR"}}))
	assert.False(t, mr.Exists(reportKey))

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, gen, []sales.Row{{Currency: "EUR"}}))
	assert.True(t, mr.Exists(reportKey))
	assert.Equal(t, time.Minute, mr.TTL(reportKey))
}

func TestSalesReport_NoTTL(t *testing.T) {
	c, mr := newTestCache(t, 0)

	require.NoError(t, c.Set(context.Background(), 0, []sales.Row{{Currency: "EUR"}}))
	assert.True(t, mr.Exists(reportKey))
	assert.Zero(t, mr.TTL(reportKey))
}

// A purchase committed while the report query runs must show up in the next
// report instead of being hidden behind the stale cached one.
func TestSalesReport_PurchaseDuringQuery(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	repo := &committingRepo{count: 1}
	svc := sales.NewService(repo, c)
	repo.invalidate = func(ctx context.Context) error {
		return svc.PurchaseCreated(ctx, nil)
	}

	first, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first[0].PurchaseCount)

	second, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second[0].PurchaseCount)

	third, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), third[0].PurchaseCount)
	assert.Equal(t, 2, repo.calls, "third report is served from cache")
}

type committingRepo struct {
	count      int64
	calls      int
	invalidate func(ctx context.Context) error
}

func (r *committingRepo) AggregateByCurrency(ctx context.Context) ([]sales.Row, error) {
	r.calls++
	snapshot := []sales.Row{{Currency: "USD", PurchaseCount: r.count}}
	if r.calls == 1 {
		r.count++
		if err := r.invalidate(ctx); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

type staticRepo []sales.Row

func (r staticRepo) AggregateByCurrency(context.Context) ([]sales.Row, error) {
	return r, nil
}

func TestCloseNil(t *testing.T) {
	var c *SalesReport
	assert.NoError(t, c.Close())
}
