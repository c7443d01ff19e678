// Package purchase records purchases and redeems promo codes against them.
package purchase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/product"
	"github.com/xenking/promo-pricing/internal/domain/promo"
)

var (
	// ErrProductRequired is returned when a request names no product.
	ErrProductRequired = apperror.Validation("product id is required", nil)
	// ErrCodeRequired is returned when a price preview names no promo code.
	ErrCodeRequired = apperror.Validation("promo code is required", nil)
)

// Purchase is an immutable record of a sale. Amounts are snapshots taken at
// purchase time.
type Purchase struct {
	ID             int64
	Date           time.Time
	RegularPrice   decimal.Decimal
	DiscountAmount decimal.Decimal
	Currency       string
	// Method and PromoCode are empty when no code was given.
	Method      promo.Method
	PromoCodeID *int64
	PromoCode   string
	// Warning is empty unless the code was degraded.
	Warning   string
	ProductID int64
}

// ProductReader loads products.
type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

// CodeReader loads promo codes.
type CodeReader interface {
	FindByCode(ctx context.Context, code string) (*promo.PromoCode, error)
}

// Store runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx holds the writes of a purchase.
type Tx interface {
	// Redeem takes one usage of the promo code if one is left. It reports
	// false, without error, when the code is already exhausted.
	Redeem(ctx context.Context, promoCodeID int64) (bool, error)
	// Create inserts p and fills in its ID.
	Create(ctx context.Context, p *Purchase) error
}

// Listener is notified after a purchase is committed.
type Listener interface {
	PurchaseCreated(ctx context.Context, p *Purchase) error
}
