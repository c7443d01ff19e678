package promo

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountedPrice returns price after applying the code.
//
// Monetary codes never push the price below zero. Percentage codes round
// half-up to the number of fractional digits of the code's amount.
func (c *PromoCode) DiscountedPrice(price decimal.Decimal) decimal.Decimal {
	switch c.Method {
	case MethodMonetary:
		return decimal.Max(decimal.Zero, price.Sub(c.Amount))
	case MethodPercentage:
		cut := price.Mul(c.Amount).Div(hundred)
		return price.Sub(cut).Round(scale(c.Amount))
	default:
		return price
	}
}

// DiscountAmount returns how much the code takes off price.
func (c *PromoCode) DiscountAmount(price decimal.Decimal) decimal.Decimal {
	return price.Sub(c.DiscountedPrice(price))
}

// scale is the number of fractional digits d carries, e.g. 2 for 10.00.
func scale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}
