// Package promo models promo codes, their discount strategies and the rules
// deciding whether a code applies to a product.
package promo

import (
	"context"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/page"
)

// Method is the discount strategy of a promo code.
type Method string

const (
	// MethodMonetary subtracts a fixed amount, floored at zero.
	MethodMonetary Method = "MONETARY"
	// MethodPercentage subtracts a percentage of the price.
	MethodPercentage Method = "PERCENTAGE"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m == MethodMonetary || m == MethodPercentage
}

var (
	// ErrNotFound is returned when a promo code does not exist.
	ErrNotFound = apperror.NotFound("promo code not found", nil)
	// ErrCodeTaken is returned when the code is already registered.
	ErrCodeTaken = apperror.Duplicate("promo code already exists", nil)
	// ErrInvalidCode is returned for codes outside the allowed pattern.
	ErrInvalidCode = apperror.Validation("promo code must be 3 to 24 letters or digits", nil)
)

var codePattern = regexp.MustCompile(`^[0-9a-zA-Z]{3,24}$`)

// ValidateCode checks the promo code pattern.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}

// PromoCode is a discount code. ExpirationDate is a calendar date held at
// UTC midnight; the code stays usable for the whole of that day.
type PromoCode struct {
	ID             int64
	Code           string
	Method         Method
	Amount         decimal.Decimal
	ExpirationDate time.Time
	MaxUsages      int
	Usages         int
	Currency       string
}

// Expired reports whether the code expired before today.
func (c *PromoCode) Expired(today time.Time) bool {
	return c.ExpirationDate.Before(Date(today))
}

// Exhausted reports whether every allowed usage is spent.
func (c *PromoCode) Exhausted() bool {
	return c.Usages >= c.MaxUsages
}

// Date truncates t to its UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Repository defines persistence operations for promo codes. Usage
// accounting lives with purchases; see purchase.Tx.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	// Create inserts c and fills in its ID.
	Create(ctx context.Context, c *PromoCode) error
	List(ctx context.Context, pg page.Page) ([]PromoCode, error)
}
