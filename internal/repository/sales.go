package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-pricing/internal/domain/sales"
)

const salesByCurrencySQL = `SELECT c.code,
		COALESCE(SUM(pu.regular_price), 0),
		COALESCE(SUM(pu.discount_amount), 0),
		COUNT(*)
	FROM purchases pu
	JOIN products p ON p.id = pu.product_id
	JOIN currencies c ON c.id = p.currency_id
	GROUP BY c.code
	ORDER BY c.code`

var _ sales.Repository = (*SalesRepository)(nil)

// SalesRepository implements sales.Repository backed by PostgreSQL.
type SalesRepository struct {
	pool *pgxpool.Pool
}

// NewSalesRepository returns a SalesRepository that uses the given pool.
func NewSalesRepository(pool *pgxpool.Pool) *SalesRepository {
	return &SalesRepository{pool: pool}
}

// AggregateByCurrency sums purchases per product currency.
func (r *SalesRepository) AggregateByCurrency(ctx context.Context) ([]sales.Row, error) {
	rows, err := r.pool.Query(ctx, salesByCurrencySQL)
	if err != nil {
		return nil, fmt.Errorf("aggregating sales: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sales.Row, error) {
		var s sales.Row
		err := row.Scan(&s.Currency, &s.TotalRegularPrice, &s.TotalDiscount, &s.PurchaseCount)
		return s, err
	})
}
