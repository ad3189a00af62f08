package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/api/responses"
	"github.com/cokeastorga/paylane/api/validators"
	"github.com/cokeastorga/paylane/internal/payments"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/logger"
)

type createIntentRequest struct {
	StoreID     string  `json:"store_id" validate:"required,uuid"`
	OrderID     string  `json:"order_id" validate:"required,uuid"`
	Amount      int64   `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency"`
	Country     string  `json:"country"`
	Method      string  `json:"method" validate:"required"`
	OrderSource string  `json:"order_source"`
	Provider    *string `json:"provider"`
}

// CreateIntent handles POST /v1/payments/intents.
func CreateIntent(service *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		storeID, err := uuid.Parse(req.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store_id must be a uuid"))
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_id must be a uuid"))
			return
		}
		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		params := payments.CreateIntentParams{
			StoreID: storeID,
			OrderID: orderID,
			Amount:  req.Amount,
			Country: req.Country,
			Method:  method,
		}
		if req.Currency != "" {
			currency, err := enums.ParseCurrency(req.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			params.Currency = currency
		}
		if req.OrderSource != "" {
			params.OrderSource = enums.OrderSource(req.OrderSource)
			if !params.OrderSource.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order source"))
				return
			}
		}
		if req.Provider != nil {
			provider, err := enums.ParseProvider(*req.Provider)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider"))
				return
			}
			params.Provider = &provider
		}

		intent, err := service.CreateIntent(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newIntentResponse(intent))
	}
}

// GetIntent handles GET /v1/payments/intents/{intentId}.
func GetIntent(service *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intentID, err := uuid.Parse(chi.URLParam(r, "intentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "intent id must be a uuid"))
			return
		}

		intent, events, err := service.GetIntent(r.Context(), intentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"intent": newIntentResponse(intent),
			"events": newEventResponses(events),
		})
	}
}

// SyncIntent handles POST /v1/payments/intents/{intentId}/sync, the manual
// reconciliation escape hatch when webhooks are delayed.
func SyncIntent(service *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intentID, err := uuid.Parse(chi.URLParam(r, "intentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "intent id must be a uuid"))
			return
		}

		result, err := service.SyncIntentStatus(r.Context(), intentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"outcome": string(result.Outcome),
			"status":  result.Status.String(),
		})
	}
}
