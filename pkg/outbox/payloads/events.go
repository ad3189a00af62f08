// Package payloads defines the versioned event bodies carried inside outbox
// envelopes. Consumers decode against these structs by (event type, version).
package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// PaymentPaidEvent signals a settled charge, emitted in the same transaction
// as the intent's move to paid.
type PaymentPaidEvent struct {
	IntentID  uuid.UUID      `json:"intent_id"`
	StoreID   uuid.UUID      `json:"store_id"`
	OrderID   uuid.UUID      `json:"order_id"`
	Amount    int64          `json:"amount"`
	FeeAmount int64          `json:"fee_amount"`
	Currency  enums.Currency `json:"currency"`
	Provider  enums.Provider `json:"provider"`
	PaidAt    time.Time      `json:"paid_at"`
}

// PaymentFailedEvent is emitted when a charge reaches a terminal failure.
type PaymentFailedEvent struct {
	IntentID uuid.UUID      `json:"intent_id"`
	StoreID  uuid.UUID      `json:"store_id"`
	OrderID  uuid.UUID      `json:"order_id"`
	Amount   int64          `json:"amount"`
	Currency enums.Currency `json:"currency"`
	Provider enums.Provider `json:"provider"`
	Reason   string         `json:"reason,omitempty"`
}

// PaymentCanceledEvent is emitted when an unsettled intent is abandoned.
type PaymentCanceledEvent struct {
	IntentID   uuid.UUID `json:"intent_id"`
	StoreID    uuid.UUID `json:"store_id"`
	OrderID    uuid.UUID `json:"order_id"`
	CanceledAt time.Time `json:"canceled_at"`
}

// RefundPendingEvent signals a refund awaiting provider confirmation or
// manual handling.
type RefundPendingEvent struct {
	RefundID uuid.UUID          `json:"refund_id"`
	IntentID uuid.UUID          `json:"intent_id"`
	StoreID  uuid.UUID          `json:"store_id"`
	Amount   int64              `json:"amount"`
	Status   enums.RefundStatus `json:"status"`
	Reason   string             `json:"reason,omitempty"`
}

// RefundSucceededEvent signals money returned to the buyer and the ledger
// reversal applied.
type RefundSucceededEvent struct {
	RefundID  uuid.UUID `json:"refund_id"`
	IntentID  uuid.UUID `json:"intent_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Amount    int64     `json:"amount"`
	FeeAmount int64     `json:"fee_amount"`
	IsFull    bool      `json:"is_full"`
	SettledAt time.Time `json:"settled_at"`
}

// PayoutRequestedEvent signals balance reserved for withdrawal.
type PayoutRequestedEvent struct {
	PayoutID uuid.UUID      `json:"payout_id"`
	StoreID  uuid.UUID      `json:"store_id"`
	Amount   int64          `json:"amount"`
	Currency enums.Currency `json:"currency"`
}

// PayoutSucceededEvent signals money delivered to the merchant's bank.
type PayoutSucceededEvent struct {
	PayoutID  uuid.UUID `json:"payout_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Amount    int64     `json:"amount"`
	SettledAt time.Time `json:"settled_at"`
}

// PayoutFailedEvent signals a payout returned by the bank; the reserved
// balance has been released back to the merchant.
type PayoutFailedEvent struct {
	PayoutID uuid.UUID `json:"payout_id"`
	StoreID  uuid.UUID `json:"store_id"`
	Amount   int64     `json:"amount"`
	Reason   string    `json:"reason,omitempty"`
}
