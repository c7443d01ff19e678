package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-pricing/internal/domain/purchase"
)

const (
	redeemPromoCodeSQL = `UPDATE promo_codes SET usages = usages + 1
		WHERE id = $1 AND usages < max_usages`

	createPurchaseSQL = `INSERT INTO purchases
		(purchase_date, regular_price, discount_amount, discount_method, warning, product_id, promo_code_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
)

var (
	_ purchase.Store = (*PurchaseStore)(nil)
	_ purchase.Tx    = (*purchaseTx)(nil)
)

// PurchaseStore implements purchase.Store backed by PostgreSQL.
type PurchaseStore struct {
	pool *pgxpool.Pool
}

// NewPurchaseStore returns a PurchaseStore that uses the given pool.
func NewPurchaseStore(pool *pgxpool.Pool) *PurchaseStore {
	return &PurchaseStore{pool: pool}
}

// WithinTx runs fn in a transaction, committing when it returns nil.
func (s *PurchaseStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx purchase.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &purchaseTx{tx: tx})
	})
}

type purchaseTx struct {
	tx pgx.Tx
}

// Redeem increments the usage counter only while a usage is left. The row
// lock taken by the update serializes concurrent redemptions of one code.
func (t *purchaseTx) Redeem(ctx context.Context, promoCodeID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, redeemPromoCodeSQL, promoCodeID)
	if err != nil {
		return false, fmt.Errorf("redeeming promo code %d: %w", promoCodeID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *purchaseTx) Create(ctx context.Context, p *purchase.Purchase) error {
	err := t.tx.QueryRow(ctx, createPurchaseSQL,
		p.Date, p.RegularPrice, p.DiscountAmount,
		nullString(string(p.Method)), nullString(p.Warning),
		p.ProductID, p.PromoCodeID,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("creating purchase for product %d: %w", p.ProductID, err)
	}
	return nil
}
