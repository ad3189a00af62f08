// Package fsm defines the legal payment-status transitions and the refund
// arithmetic invariants. Pure functions, no I/O.
package fsm

import (
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

var transitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusCreated: {
		enums.PaymentStatusPending,
		enums.PaymentStatusCanceled,
	},
	enums.PaymentStatusPending: {
		enums.PaymentStatusAuthorized,
		enums.PaymentStatusPaid,
		enums.PaymentStatusFailed,
		enums.PaymentStatusCanceled,
	},
	enums.PaymentStatusAuthorized: {
		enums.PaymentStatusPaid,
		enums.PaymentStatusFailed,
		enums.PaymentStatusCanceled,
	},
	enums.PaymentStatusPaid: {
		enums.PaymentStatusPartiallyRefunded,
		enums.PaymentStatusRefunded,
	},
	// The self-loop permits multiple successive partial refunds.
	enums.PaymentStatusPartiallyRefunded: {
		enums.PaymentStatusPartiallyRefunded,
		enums.PaymentStatusRefunded,
	},
	enums.PaymentStatusRefunded: {},
	enums.PaymentStatusFailed:   {},
	enums.PaymentStatusCanceled: {},
}

// IsValidTransition reports whether from -> to is a legal edge.
func IsValidTransition(from, to enums.PaymentStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing edges.
func IsTerminal(status enums.PaymentStatus) bool {
	edges, ok := transitions[status]
	return ok && len(edges) == 0
}

// IsRefundable reports whether a refund may be requested in this status.
func IsRefundable(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusPaid || status == enums.PaymentStatusPartiallyRefunded
}

// AssertRefundInvariant is the last line of defense against double-refund
// bugs; it must be checked even when callers already validated the amounts.
func AssertRefundInvariant(intentAmount, refundedSoFar, newRefundAmount int64) error {
	if newRefundAmount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive").
			WithDetails(map[string]any{"amount": newRefundAmount})
	}
	if refundedSoFar+newRefundAmount > intentAmount {
		return pkgerrors.New(pkgerrors.CodeRefundInvalidStatus, "refund exceeds captured amount").
			WithDetails(map[string]any{
				"intent_amount":   intentAmount,
				"refunded_so_far": refundedSoFar,
				"refund_amount":   newRefundAmount,
			})
	}
	return nil
}

// NextRefundStatus computes the intent status after a refund settles.
func NextRefundStatus(intentAmount, refundedTotal int64) enums.PaymentStatus {
	if refundedTotal >= intentAmount {
		return enums.PaymentStatusRefunded
	}
	return enums.PaymentStatusPartiallyRefunded
}
