package payments

import (
	"github.com/shopspring/decimal"

	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
)

// CommissionFee computes the platform fee for an intent from its commission
// snapshot: rate in basis points plus a fixed component, clamped to the
// configured floor and ceiling. Marketplace orders pass through at zero fee.
func CommissionFee(intent *models.PaymentIntent) int64 {
	if intent == nil || intent.Amount <= 0 {
		return 0
	}
	if intent.OrderSource == enums.OrderSourceMarketplace {
		return 0
	}

	rate := decimal.New(int64(intent.CommissionRateBps), -4)
	fee := decimal.NewFromInt(intent.Amount).Mul(rate).
		Add(decimal.NewFromInt(intent.CommissionFixedFee)).
		Round(0).IntPart()

	if intent.CommissionMinFee > 0 && fee < intent.CommissionMinFee {
		fee = intent.CommissionMinFee
	}
	if intent.CommissionMaxFee > 0 && fee > intent.CommissionMaxFee {
		fee = intent.CommissionMaxFee
	}
	if fee > intent.Amount {
		fee = intent.Amount
	}
	if fee < 0 {
		fee = 0
	}
	return fee
}

// ProportionalFee apportions the original capture fee to a partial refund.
// Each refund's share is the difference between the cumulative fee owed at
// the new refunded total and the fee already reversed for refundedBefore, so
// successive partial refunds never reverse more than the capture fee in
// aggregate and a final full refund reverses exactly the remainder.
func ProportionalFee(totalFee, refundAmount, intentAmount, refundedBefore int64) int64 {
	if totalFee <= 0 || refundAmount <= 0 || intentAmount <= 0 {
		return 0
	}
	if refundedBefore < 0 {
		refundedBefore = 0
	}
	return cumulativeFee(totalFee, refundedBefore+refundAmount, intentAmount) -
		cumulativeFee(totalFee, refundedBefore, intentAmount)
}

// cumulativeFee is the fee owed back once refundedAmount of intentAmount has
// been returned, rounded half up.
func cumulativeFee(totalFee, refundedAmount, intentAmount int64) int64 {
	if refundedAmount <= 0 {
		return 0
	}
	if refundedAmount >= intentAmount {
		return totalFee
	}
	share := decimal.NewFromInt(totalFee).
		Mul(decimal.NewFromInt(refundedAmount)).
		Div(decimal.NewFromInt(intentAmount)).
		Round(0).IntPart()
	if share > totalFee {
		share = totalFee
	}
	return share
}
