package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/api/middleware"
	"github.com/cokeastorga/paylane/api/responses"
	"github.com/cokeastorga/paylane/api/validators"
	"github.com/cokeastorga/paylane/internal/payments"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/logger"
)

type createRefundRequest struct {
	Amount int64   `json:"amount" validate:"required,gt=0"`
	Reason string  `json:"reason" validate:"required,min=3,max=500"`
	Note   *string `json:"note"`
}

func refundOutcomePayload(outcome *payments.RefundOutcome) map[string]any {
	payload := map[string]any{
		"refund": newRefundResponse(outcome.Refund),
	}
	if outcome.NewIntentStatus != "" {
		payload["intent_status"] = outcome.NewIntentStatus.String()
	}
	if outcome.IsPendingManual {
		payload["requires_manual_review"] = true
	}
	return payload
}

// CreateRefund handles POST /v1/payments/intents/{intentId}/refunds.
func CreateRefund(service *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intentID, err := uuid.Parse(chi.URLParam(r, "intentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "intent id must be a uuid"))
			return
		}

		var req createRefundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		operatorID, err := uuid.Parse(middleware.OperatorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing operator identity"))
			return
		}

		outcome, err := service.Refund(r.Context(), intentID, payments.RefundRequest{
			Amount: req.Amount,
			Reason: req.Reason,
			Note:   req.Note,
		}, operatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, refundOutcomePayload(outcome))
	}
}

// ApproveRefund handles POST /v1/refunds/{refundId}/approve. The approver is
// taken from the token; the service rejects self-approval.
func ApproveRefund(service *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refundID, err := uuid.Parse(chi.URLParam(r, "refundId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "refund id must be a uuid"))
			return
		}

		approverID, err := uuid.Parse(middleware.OperatorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing operator identity"))
			return
		}

		outcome, err := service.ApproveRefund(r.Context(), refundID, approverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, refundOutcomePayload(outcome))
	}
}

// CancelRefund handles POST /v1/refunds/{refundId}/cancel.
func CancelRefund(service *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refundID, err := uuid.Parse(chi.URLParam(r, "refundId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "refund id must be a uuid"))
			return
		}

		refund, err := service.CancelRefund(r.Context(), refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(refund))
	}
}

// FinalizeRefund handles POST /v1/refunds/{refundId}/finalize, settling a
// refund the provider completed asynchronously.
func FinalizeRefund(service *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refundID, err := uuid.Parse(chi.URLParam(r, "refundId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "refund id must be a uuid"))
			return
		}

		outcome, err := service.FinalizeRefund(r.Context(), refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, refundOutcomePayload(outcome))
	}
}
