package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/db/models"
)

type intentResponse struct {
	ID               uuid.UUID  `json:"id"`
	StoreID          uuid.UUID  `json:"store_id"`
	OrderID          uuid.UUID  `json:"order_id"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Method           string     `json:"method"`
	Provider         string     `json:"provider"`
	ProviderIntentID *string    `json:"provider_intent_id,omitempty"`
	Status           string     `json:"status"`
	ClientURL        *string    `json:"client_url,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RefundedAmount   int64      `json:"refunded_amount"`
	RefundCount      int        `json:"refund_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func newIntentResponse(intent *models.PaymentIntent) intentResponse {
	return intentResponse{
		ID:               intent.ID,
		StoreID:          intent.StoreID,
		OrderID:          intent.OrderID,
		Amount:           intent.Amount,
		Currency:         intent.Currency.String(),
		Method:           intent.Method.String(),
		Provider:         intent.Provider.String(),
		ProviderIntentID: intent.ProviderIntentID,
		Status:           intent.Status.String(),
		ClientURL:        intent.ClientURL,
		ExpiresAt:        intent.ExpiresAt,
		RefundedAmount:   intent.RefundedAmount,
		RefundCount:      intent.RefundCount,
		CreatedAt:        intent.CreatedAt,
		UpdatedAt:        intent.UpdatedAt,
	}
}

type eventResponse struct {
	ID              uuid.UUID `json:"id"`
	ProviderEventID *string   `json:"provider_event_id,omitempty"`
	OldStatus       string    `json:"old_status"`
	NewStatus       string    `json:"new_status"`
	Outcome         string    `json:"outcome"`
	CreatedAt       time.Time `json:"created_at"`
}

func newEventResponses(events []models.PaymentEvent) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, eventResponse{
			ID:              event.ID,
			ProviderEventID: event.ProviderEventID,
			OldStatus:       event.OldStatus.String(),
			NewStatus:       event.NewStatus.String(),
			Outcome:         string(event.Outcome),
			CreatedAt:       event.CreatedAt,
		})
	}
	return out
}

type refundResponse struct {
	ID               uuid.UUID `json:"id"`
	IntentID         uuid.UUID `json:"intent_id"`
	Amount           int64     `json:"amount"`
	FeeAmount        int64     `json:"fee_amount"`
	Reason           string    `json:"reason"`
	Status           string    `json:"status"`
	ProviderRefundID *string   `json:"provider_refund_id,omitempty"`
	IsFull           bool      `json:"is_full"`
	CreatedAt        time.Time `json:"created_at"`
}

func newRefundResponse(refund *models.Refund) refundResponse {
	return refundResponse{
		ID:               refund.ID,
		IntentID:         refund.IntentID,
		Amount:           refund.Amount,
		FeeAmount:        refund.FeeAmount,
		Reason:           refund.Reason,
		Status:           refund.Status.String(),
		ProviderRefundID: refund.ProviderRefundID,
		IsFull:           refund.IsFull,
		CreatedAt:        refund.CreatedAt,
	}
}

type payoutResponse struct {
	ID            uuid.UUID `json:"id"`
	StoreID       uuid.UUID `json:"store_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newPayoutResponse(payout *models.Payout) payoutResponse {
	return payoutResponse{
		ID:            payout.ID,
		StoreID:       payout.StoreID,
		Amount:        payout.Amount,
		Currency:      payout.Currency.String(),
		Status:        payout.Status.String(),
		FailureReason: payout.FailureReason,
		CreatedAt:     payout.CreatedAt,
		UpdatedAt:     payout.UpdatedAt,
	}
}
