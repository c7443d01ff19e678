package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/page"
	"github.com/xenking/promo-pricing/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

var kindStatus = map[apperror.Kind]int{
	apperror.KindNotFound:   http.StatusNotFound,
	apperror.KindValidation: http.StatusBadRequest,
	apperror.KindConflict:   http.StatusPreconditionFailed,
	apperror.KindDuplicate:  http.StatusUnprocessableEntity,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain error kinds to statuses. Errors without a kind are
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		httpmiddleware.WriteProblem(w, http.StatusInternalServerError, "", "")
		return
	}

	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	var detail string
	if appErr.Err != nil {
		detail = appErr.Err.Error()
	}
	httpmiddleware.WriteProblem(w, status, appErr.Msg, detail)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation("malformed request body", err)
	}
	return nil
}

// optionalInt parses an optional integer query parameter.
func optionalInt(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperror.Validation("query parameter "+name+" must be an integer", err)
	}
	return &v, nil
}

func parsePage(q url.Values) (page.Page, error) {
	number, err := optionalInt(q, "page")
	if err != nil {
		return page.Page{}, err
	}
	size, err := optionalInt(q, "size")
	if err != nil {
		return page.Page{}, err
	}
	return page.Parse(number, size)
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation(name+" must be a positive integer", err)
	}
	return id, nil
}
