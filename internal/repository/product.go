package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/page"
	"github.com/xenking/promo-pricing/internal/domain/product"
)

const (
	selectProductSQL = `SELECT p.id, p.name, p.description, p.price, c.code, p.version
		FROM products p JOIN currencies c ON c.id = p.currency_id`

	listProductsSQL = selectProductSQL + ` ORDER BY p.id`

	listProductsPageSQL = selectProductSQL + ` ORDER BY p.id LIMIT $1 OFFSET $2`

	getProductByIDSQL = selectProductSQL + ` WHERE p.id = $1`

	createProductSQL = `INSERT INTO products (name, description, price, currency_id)
		SELECT $1, $2, $3, id FROM currencies WHERE code = $4
		RETURNING id, version, price`

	updateProductSQL = `UPDATE products SET
			name = $2,
			description = $3,
			price = $4,
			currency_id = (SELECT id FROM currencies WHERE code = $5),
			version = version + 1
		WHERE id = $1 AND version = $6
		RETURNING version, price`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns products ordered by ID, restricted to pg unless it selects all.
func (r *ProductRepository) List(ctx context.Context, pg page.Page) ([]product.Product, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if pg.All() {
		rows, err = r.pool.Query(ctx, listProductsSQL)
	} else {
		rows, err = r.pool.Query(ctx, listProductsPageSQL, pg.Limit(), pg.Offset())
	}
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Create inserts p. The currency must already exist.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.Name, p.Description, p.Price, p.Currency,
	).Scan(&p.ID, &p.Version, &p.Price)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return product.ErrNameTaken
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("creating product %q: unknown currency %q", p.Name, p.Currency)
	default:
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
}

// Update writes p if its version is still current.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	var (
		version int64
		price   decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Currency, p.Version,
	).Scan(&version, &price)
	switch {
	case err == nil:
		p.Version, p.Price = version, price
		return nil
	case isUniqueViolation(err):
		return product.ErrNameTaken
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, productExistsSQL, p.ID).Scan(&exists); err != nil {
		return fmt.Errorf("checking product %d: %w", p.ID, err)
	}
	if !exists {
		return product.ErrNotFound
	}
	return product.ErrVersionConflict
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.Version)
	return p, err
}
