package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/currency"
	"github.com/xenking/promo-pricing/internal/domain/page"
)

// Validation errors for product input.
var (
	ErrNameRequired  = apperror.Validation("product name is required", nil)
	ErrPriceRequired = apperror.Validation("product price is required", nil)
	ErrNegativePrice = apperror.Validation("product price must not be negative", nil)
	ErrPriceScale    = apperror.Validation("product price must have at most 2 decimal places", nil)
)

// CreateRequest holds the input for creating a product.
type CreateRequest struct {
	Name        string
	Description *string
	Price       *decimal.Decimal
	Currency    string
}

// Service implements product creation, patching and listing.
type Service struct {
	repo       Repository
	currencies currency.Resolver
}

// NewService creates a product Service.
func NewService(repo Repository, currencies currency.Resolver) *Service {
	return &Service{repo: repo, currencies: currencies}
}

// List returns products ordered by ID, optionally restricted to one page.
func (s *Service) List(ctx context.Context, pg page.Page) ([]Product, error) {
	products, err := s.repo.List(ctx, pg)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Create validates req, resolves its currency and stores a new product.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Price == nil {
		return nil, ErrPriceRequired
	}
	if req.Price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if !currency.FitsScale(*req.Price) {
		return nil, ErrPriceScale
	}

	cur, err := s.resolveCurrency(ctx, req.Currency)
	if err != nil {
		return nil, err
	}

	p := &Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Currency:    cur,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update loads the product, merges patch over it and writes it back with a
// version check.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Product, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, ErrNameRequired
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, ErrNegativePrice
		}
		if !currency.FitsScale(*patch.Price) {
			return nil, ErrPriceScale
		}
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load product")
	}
	if patch.Version != nil && *patch.Version != p.Version {
		return nil, ErrVersionConflict
	}

	if patch.Currency != nil {
		if code := currency.Normalize(*patch.Currency); code != "" {
			cur, err := s.resolveCurrency(ctx, code)
			if err != nil {
				return nil, err
			}
			patch.Currency = &cur
		}
	}

	p.Apply(patch)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

func (s *Service) resolveCurrency(ctx context.Context, code string) (string, error) {
	code = currency.Normalize(code)
	if code == "" {
		return "", currency.ErrEmptyCode
	}
	cur, err := s.currencies.Resolve(ctx, code)
	if err != nil {
		return "", errors.Wrap(err, "resolve currency")
	}
	return cur.Code, nil
}
