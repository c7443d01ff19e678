package handler

import (
	"net/http"

	"github.com/xenking/promo-pricing/internal/domain/purchase"
)

// CreatePurchase handles POST /v1/api/purchases. A degraded promo code still
// yields 201 with a warning.
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.purchases.CreatePurchase(r.Context(), purchase.Request{
		ProductID: req.ProductID,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseResponse(res))
}

// DiscountPrice handles GET /v1/api/purchases/discount?productId&promoCode.
func (h *Handler) DiscountPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, err := parseID(q.Get("productId"), "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	quote, err := h.purchases.GetDiscountPrice(r.Context(), productID, q.Get("promoCode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, discountResponse{
		DiscountPrice: quote.Price.Amount,
		Currency:      quote.Price.Currency,
		Warning:       optional(quote.Warning()),
	})
}
