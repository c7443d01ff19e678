package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/currency"
	"github.com/xenking/promo-pricing/internal/domain/page"
)

// Validation errors for promo code input.
var (
	ErrAmountRequired     = apperror.Validation("discount amount is required", nil)
	ErrNegativeAmount     = apperror.Validation("discount amount must not be negative", nil)
	ErrAmountScale        = apperror.Validation("discount amount must have at most 2 decimal places", nil)
	ErrPercentageTooLarge = apperror.Validation("discount percentage must not exceed 100", nil)
	ErrMaxUsages          = apperror.Validation("maximal usages must be greater than zero", nil)
	ErrExpirationRequired = apperror.Validation("expiration date is required", nil)
	ErrUnknownMethod      = apperror.Validation("unknown discount method", nil)
)

// CreateRequest holds the input for creating a promo code.
type CreateRequest struct {
	Code           string
	ExpirationDate time.Time
	MaxUsages      int
	Amount         *decimal.Decimal
	Currency       string
}

// Service creates and looks up promo codes.
type Service struct {
	repo       Repository
	currencies currency.Resolver
}

// NewService creates a promo code Service.
func NewService(repo Repository, currencies currency.Resolver) *Service {
	return &Service{repo: repo, currencies: currencies}
}

// CreateMonetary creates a fixed-amount promo code.
func (s *Service) CreateMonetary(ctx context.Context, req CreateRequest) (*PromoCode, error) {
	return s.create(ctx, MethodMonetary, req)
}

// CreatePercentage creates a percentage promo code.
func (s *Service) CreatePercentage(ctx context.Context, req CreateRequest) (*PromoCode, error) {
	return s.create(ctx, MethodPercentage, req)
}

func (s *Service) create(ctx context.Context, method Method, req CreateRequest) (*PromoCode, error) {
	if err := validateCreate(method, req); err != nil {
		return nil, err
	}

	code := currency.Normalize(req.Currency)
	if code == "" {
		return nil, currency.ErrEmptyCode
	}
	cur, err := s.currencies.Resolve(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "resolve currency")
	}

	c := &PromoCode{
		Code:           req.Code,
		Method:         method,
		Amount:         *req.Amount,
		ExpirationDate: Date(req.ExpirationDate),
		MaxUsages:      req.MaxUsages,
		Currency:       cur.Code,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create promo code")
	}
	return c, nil
}

func validateCreate(method Method, req CreateRequest) error {
	if !method.Valid() {
		return ErrUnknownMethod
	}
	if err := ValidateCode(req.Code); err != nil {
		return err
	}
	if req.ExpirationDate.IsZero() {
		return ErrExpirationRequired
	}
	if req.MaxUsages <= 0 {
		return ErrMaxUsages
	}
	if req.Amount == nil {
		return ErrAmountRequired
	}
	if req.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !currency.FitsScale(*req.Amount) {
		return ErrAmountScale
	}
	if method == MethodPercentage && req.Amount.GreaterThan(hundred) {
		return ErrPercentageTooLarge
	}
	return nil
}

// Details returns the promo code with the given code.
func (s *Service) Details(ctx context.Context, code string) (*PromoCode, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "find promo code")
	}
	return c, nil
}

// List returns promo codes ordered by ID, optionally restricted to one page.
func (s *Service) List(ctx context.Context, pg page.Page) ([]PromoCode, error) {
	codes, err := s.repo.List(ctx, pg)
	if err != nil {
		return nil, errors.Wrap(err, "list promo codes")
	}
	return codes, nil
}
