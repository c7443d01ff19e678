package product

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/page"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = apperror.NotFound("product not found", nil)
	// ErrVersionConflict is returned when the stored version no longer
	// matches the version the update was based on.
	ErrVersionConflict = apperror.Conflict("product was modified concurrently, reload and retry", nil)
	// ErrNameTaken is returned when another product already uses the name.
	ErrNameTaken = apperror.Duplicate("product with this name already exists", nil)
)

// Product is a catalog item. Version is the optimistic concurrency token and
// grows by one on every successful update.
type Product struct {
	ID          int64
	Name        string
	Description *string
	Price       decimal.Decimal
	Currency    string
	Version     int64
}

// Patch holds the fields of a partial update. Nil fields keep the stored value.
// Version, when set, must equal the stored version.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Currency    *string
	Version     *int64
}

// Apply merges the non-nil fields of patch into p. The currency is taken only
// when non-empty and is expected to be normalized already.
func (p *Product) Apply(patch Patch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		desc := *patch.Description
		p.Description = &desc
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Currency != nil && *patch.Currency != "" {
		p.Currency = *patch.Currency
	}
}

// Repository defines persistence operations for products.
type Repository interface {
	List(ctx context.Context, pg page.Page) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	// Create inserts p and fills in its ID and Version.
	Create(ctx context.Context, p *Product) error
	// Update writes p if the stored version still equals p.Version and bumps
	// p.Version on success. It returns ErrVersionConflict otherwise.
	Update(ctx context.Context, p *Product) error
}
