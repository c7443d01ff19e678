// Package sales aggregates purchases into a per-currency report.
package sales

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/promo-pricing/internal/domain/purchase"
)

// Row is the report line for one currency.
type Row struct {
	Currency          string
	TotalRegularPrice decimal.Decimal
	TotalDiscount     decimal.Decimal
	PurchaseCount     int64
}

// Repository aggregates stored purchases.
type Repository interface {
	// AggregateByCurrency sums purchases grouped by product currency,
	// ordered by currency code.
	AggregateByCurrency(ctx context.Context) ([]Row, error)
}

// Cache stores a computed report. Every Invalidate moves the cache to a new
// generation, and Set only stores rows computed in the current one, so a
// report read before a purchase committed is never cached after it.
type Cache interface {
	// Get returns the cached report and whether it was present.
	Get(ctx context.Context) ([]Row, bool, error)
	// Generation returns the current generation.
	Generation(ctx context.Context) (int64, error)
	// Set stores rows computed at generation gen. It is a no-op when the
	// generation has moved since.
	Set(ctx context.Context, gen int64, rows []Row) error
	Invalidate(ctx context.Context) error
}

var _ purchase.Listener = (*Service)(nil)

// Service builds the sales report, reading through an optional cache.
type Service struct {
	repo  Repository
	cache Cache
}

// NewService creates a sales Service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Report returns totals per currency. It never returns a nil slice.
func (s *Service) Report(ctx context.Context) ([]Row, error) {
	lg := zctx.From(ctx)

	cacheable := false
	var gen int64
	if s.cache != nil {
		rows, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			lg.Warn("Sales report cache read failed", zap.Error(err))
		case ok:
			return rows, nil
		}

		// The generation must be read before the aggregate query.
		if gen, err = s.cache.Generation(ctx); err != nil {
			lg.Warn("Sales report cache generation read failed", zap.Error(err))
		} else {
			cacheable = true
		}
	}

	rows, err := s.repo.AggregateByCurrency(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate sales")
	}
	if rows == nil {
		rows = []Row{}
	}

	if cacheable {
		if err := s.cache.Set(ctx, gen, rows); err != nil {
			lg.Warn("Sales report cache write failed", zap.Error(err))
		}
	}
	return rows, nil
}

// PurchaseCreated drops the cached report and starts a new generation.
func (s *Service) PurchaseCreated(ctx context.Context, _ *purchase.Purchase) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return errors.Wrap(err, "invalidate sales report")
	}
	return nil
}
