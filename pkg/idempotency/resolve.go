package idempotency

import (
	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// Outcome decides what to do with a duplicate intent request.
type Outcome string

const (
	OutcomeCreate Outcome = "create"
	OutcomeReuse  Outcome = "reuse"
	OutcomeReject Outcome = "reject"
)

// Resolve inspects an existing intent for the same idempotency key and decides
// whether the caller should create a fresh intent, reuse the in-flight one, or
// be rejected because the order already settled.
func Resolve(existing *models.PaymentIntent) (Outcome, error) {
	if existing == nil {
		return OutcomeCreate, nil
	}

	switch existing.Status {
	case enums.PaymentStatusCreated, enums.PaymentStatusPending, enums.PaymentStatusAuthorized:
		// Reusing the live intent avoids a duplicate charge at the provider.
		return OutcomeReuse, nil
	case enums.PaymentStatusFailed, enums.PaymentStatusCanceled:
		return OutcomeCreate, nil
	case enums.PaymentStatusPaid, enums.PaymentStatusRefunded, enums.PaymentStatusPartiallyRefunded:
		return OutcomeReject, pkgerrors.New(pkgerrors.CodeIntentAlreadyPaid, "order already settled").
			WithDetails(map[string]any{"intent_id": existing.ID, "status": existing.Status})
	default:
		return OutcomeReject, pkgerrors.New(pkgerrors.CodeInternal, "unknown intent status "+existing.Status.String())
	}
}
