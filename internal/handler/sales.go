package handler

import "net/http"

// SalesReport handles GET /v1/api/sales/report.
func (h *Handler) SalesReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.sales.Report(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesReport(rows))
}
