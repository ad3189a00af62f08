package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// IntentKey derives the deterministic idempotency key for a payment intent.
// The same (store, order, amount, currency) always resolves to the same
// intent; a legitimately changed amount produces a new key.
func IntentKey(storeID, orderID uuid.UUID, amount int64, currency enums.Currency) string {
	return hash(fmt.Sprintf("intent:%s:%s:%d:%s", storeID, orderID, amount, currency))
}

// EventKey makes every inbound provider event deduplicable independent of the
// intent lifecycle.
func EventKey(providerEventID string) string {
	return hash("event:" + providerEventID)
}

// InternalEventKey keys internally generated transitions, which have no
// provider event id.
func InternalEventKey(intentID uuid.UUID, status enums.PaymentStatus, unixNano int64) string {
	return hash(fmt.Sprintf("internal:%s:%s:%d", intentID, status, unixNano))
}

// RefundKey identifies one distinct refund request.
func RefundKey(intentID uuid.UUID, amount int64, reason string, operatorID uuid.UUID) string {
	return hash(fmt.Sprintf("refund:%s:%d:%s:%s", intentID, amount, strings.TrimSpace(reason), operatorID))
}

// PayoutKey identifies one distinct payout request.
func PayoutKey(storeID uuid.UUID, amount int64, currency enums.Currency, requestedDay string) string {
	return hash(fmt.Sprintf("payout:%s:%d:%s:%s", storeID, amount, currency, requestedDay))
}

func hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
