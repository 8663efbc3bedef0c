package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
	"github.com/xenking/catalog-service/pkg/httpmiddleware"
)

// Client-facing messages.
const (
	msgProductDeleted   = "Product successfully deleted."
	msgProductNotFound  = "The product was not found."
	msgCategoryNotFound = "The category was not found."
	msgUnknownCategory  = "Category does not exist"
	msgRateUnavailable  = "exchange rate unavailable"
	msgPriceOutOfRange  = "Price must not exceed 1000000000 and may have at most 6 decimal places"
	msgInternal         = "internal server error"
)

// fail maps err onto an HTTP error response. Only unexpected errors are
// logged at error level; their details never reach the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *ValidationError
		unavailable *product.RateUnavailableError
	)
	lg := zctx.From(r.Context())

	switch {
	case errors.As(err, &validation):
		writeValidation(w, r, validation)
	case errors.Is(err, errMalformedBody):
		httpmiddleware.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, product.ErrNotFound):
		httpmiddleware.WriteError(w, r, http.StatusNotFound, msgProductNotFound)
	case errors.Is(err, category.ErrNotFound):
		httpmiddleware.WriteError(w, r, http.StatusNotFound, msgCategoryNotFound)
	case errors.Is(err, product.ErrCategoryNotFound):
		httpmiddleware.WriteError(w, r, http.StatusBadRequest, msgUnknownCategory)
	case errors.Is(err, product.ErrPriceOutOfRange):
		httpmiddleware.WriteError(w, r, http.StatusBadRequest, msgPriceOutOfRange)
	case errors.Is(err, category.ErrEmptyName):
		httpmiddleware.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &unavailable):
		lg.Warn("Exchange rate unavailable", zap.Error(err))
		httpmiddleware.WriteError(w, r, http.StatusBadGateway, msgRateUnavailable)
	default:
		lg.Error("Request failed", zap.Error(err))
		httpmiddleware.WriteError(w, r, http.StatusInternalServerError, msgInternal)
	}
}

// writeValidation writes the error envelope with the joined messages and a
// per-field list.
func writeValidation(w http.ResponseWriter, r *http.Request, ve *ValidationError) {
	requestID := httpmiddleware.RequestIDFromContext(r.Context())
	writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusBadRequest) })
			e.Field("message", func(e *jx.Encoder) { e.Str(ve.Error()) })
			if requestID != "" {
				e.Field("requestId", func(e *jx.Encoder) { e.Str(requestID) })
			}
			e.Field("errors", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, f := range ve.Fields {
						e.Obj(func(e *jx.Encoder) {
							e.Field("field", func(e *jx.Encoder) { e.Str(f.Field) })
							e.Field("message", func(e *jx.Encoder) { e.Str(f.Message) })
						})
					}
				})
			})
		})
	})
}
