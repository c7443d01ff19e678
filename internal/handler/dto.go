package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/product"
	"github.com/xenking/promo-pricing/internal/domain/promo"
	"github.com/xenking/promo-pricing/internal/domain/purchase"
	"github.com/xenking/promo-pricing/internal/domain/sales"
)

// Date is a calendar date encoded as "YYYY-MM-DD".
type Date time.Time

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).Format(time.DateOnly) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return errors.Errorf("date must be a string, got %s", b)
	}
	t, err := time.Parse(time.DateOnly, string(b[1:len(b)-1]))
	if err != nil {
		return errors.Wrap(err, "parse date")
	}
	*d = Date(t)
	return nil
}

type productResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Version     int64           `json:"version"`
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Currency:    p.Currency,
		Version:     p.Version,
	}
}

type productCreateRequest struct {
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    string           `json:"currency"`
}

type productPatchRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency"`
	Version     *int64           `json:"version"`
}

type promoCodeRequest struct {
	Code           string           `json:"code"`
	ExpirationDate *Date            `json:"expirationDate"`
	MaxUsages      int              `json:"maxUsages"`
	Amount         *decimal.Decimal `json:"amount"`
	Currency       string           `json:"currency"`
}

func (r promoCodeRequest) toDomain() promo.CreateRequest {
	req := promo.CreateRequest{
		Code:      r.Code,
		MaxUsages: r.MaxUsages,
		Amount:    r.Amount,
		Currency:  r.Currency,
	}
	if r.ExpirationDate != nil {
		req.ExpirationDate = time.Time(*r.ExpirationDate)
	}
	return req
}

type promoCodeResponse struct {
	Code           string          `json:"code"`
	ExpirationDate Date            `json:"expirationDate"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	DiscountMethod promo.Method    `json:"discountMethod"`
}

func toPromoCodeResponse(c *promo.PromoCode) promoCodeResponse {
	return promoCodeResponse{
		Code:           c.Code,
		ExpirationDate: Date(c.ExpirationDate),
		Amount:         c.Amount,
		Currency:       c.Currency,
		DiscountMethod: c.Method,
	}
}

type promoCodeDetailsResponse struct {
	promoCodeResponse
	MaxUsages int `json:"maxUsages"`
	Usages    int `json:"usages"`
}

type purchaseRequest struct {
	ProductID int64  `json:"productId"`
	PromoCode string `json:"promoCode"`
}

type purchaseResponse struct {
	ID             int64           `json:"id"`
	Date           Date            `json:"date"`
	RegularPrice   decimal.Decimal `json:"regularPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Currency       string          `json:"currency"`
	DiscountMethod *promo.Method   `json:"discountMethod"`
	PromoCode      *string         `json:"promoCode"`
	Warning        *string         `json:"warning"`
	Product        productResponse `json:"product"`
}

func toPurchaseResponse(res *purchase.Result) purchaseResponse {
	p := res.Purchase
	resp := purchaseResponse{
		ID:             p.ID,
		Date:           Date(p.Date),
		RegularPrice:   p.RegularPrice,
		DiscountAmount: p.DiscountAmount,
		Currency:       p.Currency,
		Warning:        optional(res.Warning()),
		PromoCode:      optional(p.PromoCode),
		Product:        toProductResponse(res.Product),
	}
	if p.Method != "" {
		m := p.Method
		resp.DiscountMethod = &m
	}
	return resp
}

type discountResponse struct {
	DiscountPrice decimal.Decimal `json:"discountPrice"`
	Currency      string          `json:"currency"`
	Warning       *string         `json:"warning"`
}

type salesReportEntry struct {
	Currency          string          `json:"currency"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	TotalDiscount     decimal.Decimal `json:"totalDiscount"`
	NumberOfPurchases int64           `json:"numberOfPurchases"`
}

func toSalesReport(rows []sales.Row) []salesReportEntry {
	out := make([]salesReportEntry, len(rows))
	for i, r := range rows {
		out[i] = salesReportEntry{
			Currency:          r.Currency,
			TotalAmount:       r.TotalRegularPrice,
			TotalDiscount:     r.TotalDiscount,
			NumberOfPurchases: r.PurchaseCount,
		}
	}
	return out
}

// optional maps "" to a JSON null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
