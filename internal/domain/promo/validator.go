package promo

import (
	"time"

	"github.com/xenking/promo-pricing/internal/domain/currency"
)

// Outcome classifies a promo code against a product. Every outcome other
// than OutcomeValid degrades the discount to zero without failing the
// request.
type Outcome int

const (
	// OutcomeValid means the full discount applies.
	OutcomeValid Outcome = iota
	// OutcomeExpired means the code's expiration date is before today.
	OutcomeExpired
	// OutcomeCurrencyMismatch means the code and the product use different
	// currencies.
	OutcomeCurrencyMismatch
	// OutcomeUsageExhausted means the code reached its maximum usages. Only
	// redemption checks it.
	OutcomeUsageExhausted
)

var outcomeNames = map[Outcome]string{
	OutcomeValid:            "valid",
	OutcomeExpired:          "expired",
	OutcomeCurrencyMismatch: "currency_mismatch",
	OutcomeUsageExhausted:   "usage_exhausted",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Warning returns the client-facing warning for a degraded outcome, or ""
// for OutcomeValid.
func (o Outcome) Warning() string {
	switch o {
	case OutcomeExpired:
		return "promo code has expired"
	case OutcomeCurrencyMismatch:
		return "currencies of promo code and product don't match"
	case OutcomeUsageExhausted:
		return "cannot use this code — reached maximum usages"
	default:
		return ""
	}
}

// Mode selects which checks Evaluate runs.
type Mode int

const (
	// ModePreview skips the usage check; nothing is redeemed.
	ModePreview Mode = iota
	// ModeRedeem runs every check.
	ModeRedeem
)

// Evaluate classifies code against a product priced in price.Currency.
// Checks run in a fixed order and the first failing one wins: expiry,
// then currency, then (redeem mode only) remaining usages.
func Evaluate(code *PromoCode, price currency.Money, today time.Time, mode Mode) Outcome {
	if code.Expired(today) {
		return OutcomeExpired
	}
	if code.Currency != price.Currency {
		return OutcomeCurrencyMismatch
	}
	if mode == ModeRedeem && code.Exhausted() {
		return OutcomeUsageExhausted
	}
	return OutcomeValid
}
