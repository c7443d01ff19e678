package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-pricing/internal/domain/currency"
)

const (
	insertCurrencySQL = `INSERT INTO currencies (code) VALUES ($1)
		ON CONFLICT (code) DO NOTHING RETURNING id`

	getCurrencyIDSQL = `SELECT id FROM currencies WHERE code = $1`
)

var _ currency.Resolver = (*CurrencyRepository)(nil)

// CurrencyRepository implements currency.Resolver backed by PostgreSQL.
type CurrencyRepository struct {
	pool *pgxpool.Pool
}

// NewCurrencyRepository returns a CurrencyRepository that uses the given pool.
func NewCurrencyRepository(pool *pgxpool.Pool) *CurrencyRepository {
	return &CurrencyRepository{pool: pool}
}

// Resolve returns the currency with the given code, inserting it first when
// absent. When a concurrent insert wins, the existing row is read instead.
func (r *CurrencyRepository) Resolve(ctx context.Context, code string) (*currency.Currency, error) {
	code = currency.Normalize(code)
	if code == "" {
		return nil, currency.ErrEmptyCode
	}

	var id int64
	err := r.pool.QueryRow(ctx, insertCurrencySQL, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = r.pool.QueryRow(ctx, getCurrencyIDSQL, code).Scan(&id)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving currency %q: %w", code, err)
	}

	return &currency.Currency{ID: id, Code: code}, nil
}
