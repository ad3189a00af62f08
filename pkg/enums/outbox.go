package enums

import "fmt"

// OutboxEventType enumerates events emitted through the transactional outbox.
type OutboxEventType string

const (
	OutboxEventTypePaymentPaid     OutboxEventType = "payment.paid"
	OutboxEventTypePaymentFailed   OutboxEventType = "payment.failed"
	OutboxEventTypePaymentCanceled OutboxEventType = "payment.canceled"
	OutboxEventTypeRefundSucceeded OutboxEventType = "refund.succeeded"
	OutboxEventTypeRefundPending   OutboxEventType = "refund.pending"
	OutboxEventTypePayoutRequested OutboxEventType = "payout.requested"
	OutboxEventTypePayoutSucceeded OutboxEventType = "payout.succeeded"
	OutboxEventTypePayoutFailed    OutboxEventType = "payout.failed"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventTypePaymentPaid,
	OutboxEventTypePaymentFailed,
	OutboxEventTypePaymentCanceled,
	OutboxEventTypeRefundSucceeded,
	OutboxEventTypeRefundPending,
	OutboxEventTypePayoutRequested,
	OutboxEventTypePayoutSucceeded,
	OutboxEventTypePayoutFailed,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateTypePaymentIntent OutboxAggregateType = "payment_intent"
	OutboxAggregateTypeRefund        OutboxAggregateType = "refund"
	OutboxAggregateTypePayout        OutboxAggregateType = "payout"
)

// IsValid reports whether the aggregate type is recognized.
func (t OutboxAggregateType) IsValid() bool {
	switch t {
	case OutboxAggregateTypePaymentIntent, OutboxAggregateTypeRefund, OutboxAggregateTypePayout:
		return true
	}
	return false
}

// OutboxDLQErrorReason classifies why a row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// IsValid reports whether the reason is recognized.
func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonNonRetryable, OutboxDLQReasonMaxAttempts:
		return true
	}
	return false
}
