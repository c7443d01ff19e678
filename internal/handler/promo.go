package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/promo-pricing/internal/domain/promo"
)

// ListPromoCodes handles GET /v1/api/promo-codes?page&size.
func (h *Handler) ListPromoCodes(w http.ResponseWriter, r *http.Request) {
	pg, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	codes, err := h.codes.List(r.Context(), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]promoCodeResponse, len(codes))
	for i := range codes {
		resp[i] = toPromoCodeResponse(&codes[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateMonetaryPromoCode handles POST /v1/api/promo-codes/monetary.
func (h *Handler) CreateMonetaryPromoCode(w http.ResponseWriter, r *http.Request) {
	h.createPromoCode(w, r, h.codes.CreateMonetary)
}

// CreatePercentagePromoCode handles POST /v1/api/promo-codes/percentage.
func (h *Handler) CreatePercentagePromoCode(w http.ResponseWriter, r *http.Request) {
	h.createPromoCode(w, r, h.codes.CreatePercentage)
}

func (h *Handler) createPromoCode(
	w http.ResponseWriter,
	r *http.Request,
	create func(context.Context, promo.CreateRequest) (*promo.PromoCode, error),
) {
	var req promoCodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := create(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromoCodeResponse(c))
}

// PromoCodeDetails handles GET /v1/api/promo-codes/details/{code}.
func (h *Handler) PromoCodeDetails(w http.ResponseWriter, r *http.Request) {
	c, err := h.codes.Details(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promoCodeDetailsResponse{
		promoCodeResponse: toPromoCodeResponse(c),
		MaxUsages:         c.MaxUsages,
		Usages:            c.Usages,
	})
}
