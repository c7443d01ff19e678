// Package currency holds the currency and money value types shared by
// products, promo codes and purchases.
package currency

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
)

// ErrEmptyCode is returned when a currency code is blank after trimming.
var ErrEmptyCode = apperror.Validation("currency is required", nil)

// Currency is a stored currency row. Code is always uppercase.
type Currency struct {
	ID   int64
	Code string
}

// Normalize canonicalizes a currency code: surrounding space is trimmed and
// letters are uppercased.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Scale is the number of decimal places money amounts are stored with.
const Scale = 2

// FitsScale reports whether d can be stored without rounding. Trailing zeros
// do not count, so 12.340 fits.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// Money pairs an amount with a currency code.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney returns Money with a normalized currency code.
func NewMoney(amount decimal.Decimal, code string) Money {
	return Money{Amount: amount, Currency: Normalize(code)}
}

// SameCurrency reports whether both values are denominated in the same currency.
func (m Money) SameCurrency(o Money) bool {
	return m.Currency == o.Currency
}

// Equal reports whether both amount and currency match. Amounts are compared
// numerically, so 10.0 equals 10.00.
func (m Money) Equal(o Money) bool {
	return m.SameCurrency(o) && m.Amount.Equal(o.Amount)
}

// Resolver finds a currency by code, creating it when absent. Implementations
// must be idempotent and tolerate concurrent creates of the same code.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*Currency, error)
}
