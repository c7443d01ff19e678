package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-pricing/internal/domain/page"
	"github.com/xenking/promo-pricing/internal/domain/promo"
)

const (
	selectPromoCodeSQL = `SELECT pc.id, pc.code, pc.discount_method, pc.amount, pc.expiration_date,
		pc.max_usages, pc.usages, c.code
		FROM promo_codes pc JOIN currencies c ON c.id = pc.currency_id`

	getPromoCodeByCodeSQL = selectPromoCodeSQL + ` WHERE pc.code = $1`

	listPromoCodesSQL = selectPromoCodeSQL + ` ORDER BY pc.id`

	listPromoCodesPageSQL = selectPromoCodeSQL + ` ORDER BY pc.id LIMIT $1 OFFSET $2`

	createPromoCodeSQL = `INSERT INTO promo_codes
		(code, discount_method, amount, expiration_date, max_usages, currency_id)
		SELECT $1, $2, $3, $4, $5, id FROM currencies WHERE code = $6
		RETURNING id, usages, amount`
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// FindByCode looks up a promo code. Codes are matched exactly.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.PromoCode, error) {
	rows, err := r.pool.Query(ctx, getPromoCodeByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanPromoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}
	return &c, nil
}

// Create inserts c. The currency must already exist.
func (r *PromoRepository) Create(ctx context.Context, c *promo.PromoCode) error {
	err := r.pool.QueryRow(ctx, createPromoCodeSQL,
		c.Code, string(c.Method), c.Amount, c.ExpirationDate, c.MaxUsages, c.Currency,
	).Scan(&c.ID, &c.Usages, &c.Amount)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return promo.ErrCodeTaken
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("creating promo code %q: unknown currency %q", c.Code, c.Currency)
	default:
		return fmt.Errorf("creating promo code %q: %w", c.Code, err)
	}
}

// List returns promo codes ordered by ID, restricted to pg unless it selects all.
func (r *PromoRepository) List(ctx context.Context, pg page.Page) ([]promo.PromoCode, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if pg.All() {
		rows, err = r.pool.Query(ctx, listPromoCodesSQL)
	} else {
		rows, err = r.pool.Query(ctx, listPromoCodesPageSQL, pg.Limit(), pg.Offset())
	}
	if err != nil {
		return nil, fmt.Errorf("listing promo codes: %w", err)
	}
	return pgx.CollectRows(rows, scanPromoCode)
}

func scanPromoCode(row pgx.CollectableRow) (promo.PromoCode, error) {
	var (
		c      promo.PromoCode
		method string
	)
	err := row.Scan(
		&c.ID, &c.Code, &method, &c.Amount, &c.ExpirationDate,
		&c.MaxUsages, &c.Usages, &c.Currency,
	)
	c.Method = promo.Method(method)
	return c, err
}
