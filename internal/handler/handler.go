// Package handler exposes the pricing services over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/promo-pricing/internal/domain/page"
	"github.com/xenking/promo-pricing/internal/domain/product"
	"github.com/xenking/promo-pricing/internal/domain/promo"
	"github.com/xenking/promo-pricing/internal/domain/purchase"
	"github.com/xenking/promo-pricing/internal/domain/sales"
	"github.com/xenking/promo-pricing/pkg/httpmiddleware"
)

// ProductService is implemented by *product.Service.
type ProductService interface {
	List(ctx context.Context, pg page.Page) ([]product.Product, error)
	Create(ctx context.Context, req product.CreateRequest) (*product.Product, error)
	Update(ctx context.Context, id int64, patch product.Patch) (*product.Product, error)
}

// PromoService is implemented by *promo.Service.
type PromoService interface {
	CreateMonetary(ctx context.Context, req promo.CreateRequest) (*promo.PromoCode, error)
	CreatePercentage(ctx context.Context, req promo.CreateRequest) (*promo.PromoCode, error)
	Details(ctx context.Context, code string) (*promo.PromoCode, error)
	List(ctx context.Context, pg page.Page) ([]promo.PromoCode, error)
}

// PurchaseService is implemented by *purchase.Service.
type PurchaseService interface {
	CreatePurchase(ctx context.Context, req purchase.Request) (*purchase.Result, error)
	GetDiscountPrice(ctx context.Context, productID int64, code string) (*purchase.Quote, error)
}

// SalesService is implemented by *sales.Service.
type SalesService interface {
	Report(ctx context.Context) ([]sales.Row, error)
}

var (
	_ ProductService  = (*product.Service)(nil)
	_ PromoService    = (*promo.Service)(nil)
	_ PurchaseService = (*purchase.Service)(nil)
	_ SalesService    = (*sales.Service)(nil)
)

// Handler serves the /v1/api routes.
type Handler struct {
	products  ProductService
	codes     PromoService
	purchases PurchaseService
	sales     SalesService
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(
	products ProductService,
	codes PromoService,
	purchases PurchaseService,
	sales SalesService,
) *Handler {
	return &Handler{
		products:  products,
		codes:     codes,
		purchases: purchases,
		sales:     sales,
	}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/v1/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Patch("/{id}", h.UpdateProduct)
		})
		r.Route("/promo-codes", func(r chi.Router) {
			r.Get("/", h.ListPromoCodes)
			r.Post("/monetary", h.CreateMonetaryPromoCode)
			r.Post("/percentage", h.CreatePercentagePromoCode)
			r.Get("/details/{code}", h.PromoCodeDetails)
		})
		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", h.CreatePurchase)
			r.Get("/discount", h.DiscountPrice)
		})
		r.Get("/sales/report", h.SalesReport)
	})
}

// NotFound answers unknown routes with a problem document.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	httpmiddleware.WriteProblem(w, http.StatusNotFound, "route not found", "")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httpmiddleware.WriteProblem(w, http.StatusMethodNotAllowed, "method not allowed", "")
}
