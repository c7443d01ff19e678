package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/promo-pricing/internal/domain/product"
)

// ListProducts handles GET /v1/api/products?page&size.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	pg, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	products, err := h.products.List(r.Context(), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i := range products {
		resp[i] = toProductResponse(&products[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateProduct handles POST /v1/api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productCreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.products.Create(r.Context(), product.CreateRequest{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// UpdateProduct handles PATCH /v1/api/products/{id}. Only fields present in
// the body are changed.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), "product id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req productPatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.products.Update(r.Context(), id, product.Patch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Version:     req.Version,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}
