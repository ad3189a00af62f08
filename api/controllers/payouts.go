package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/api/responses"
	"github.com/cokeastorga/paylane/api/validators"
	"github.com/cokeastorga/paylane/internal/payouts"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/logger"
)

type requestPayoutRequest struct {
	StoreID  string `json:"store_id" validate:"required,uuid"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency"`
}

// RequestPayout handles POST /v1/payouts.
func RequestPayout(service *payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		storeID, err := uuid.Parse(req.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store_id must be a uuid"))
			return
		}

		var currency enums.Currency
		if req.Currency != "" {
			currency, err = enums.ParseCurrency(req.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
		}

		payout, err := service.RequestPayout(r.Context(), storeID, req.Amount, currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPayoutResponse(payout))
	}
}

// ListPayouts handles GET /v1/stores/{storeId}/payouts.
func ListPayouts(service *payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store id must be a uuid"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", payouts.DefaultPageSize, 1, payouts.MaxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := payouts.ListParams{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParsePayoutStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		rows, next, err := service.ListByStore(r.Context(), storeID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]payoutResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newPayoutResponse(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"payouts":     out,
			"next_cursor": next,
		})
	}
}

// PayoutableBalance handles GET /v1/stores/{storeId}/balance.
func PayoutableBalance(service *payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store id must be a uuid"))
			return
		}

		balance, err := service.PayoutableBalance(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"store_id":           storeID,
			"payoutable_balance": balance,
		})
	}
}

type failPayoutRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// AdminMarkPayoutProcessing handles POST /admin/v1/payouts/{payoutId}/processing.
func AdminMarkPayoutProcessing(service *payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, err := uuid.Parse(chi.URLParam(r, "payoutId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payout id must be a uuid"))
			return
		}

		payout, err := service.MarkProcessing(r.Context(), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPayoutResponse(payout))
	}
}

// AdminFinalizePayout handles POST /admin/v1/payouts/{payoutId}/finalize.
func AdminFinalizePayout(service *payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, err := uuid.Parse(chi.URLParam(r, "payoutId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payout id must be a uuid"))
			return
		}

		payout, err := service.FinalizePayout(r.Context(), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPayoutResponse(payout))
	}
}

// AdminFailPayout handles POST /admin/v1/payouts/{payoutId}/fail.
func AdminFailPayout(service *payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, err := uuid.Parse(chi.URLParam(r, "payoutId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payout id must be a uuid"))
			return
		}

		var req failPayoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := service.FailPayout(r.Context(), payoutID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPayoutResponse(payout))
	}
}
