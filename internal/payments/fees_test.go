package payments

import (
	"testing"

	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
)

func feeIntent(amount int64, rateBps int, fixed, min, max int64) *models.PaymentIntent {
	return &models.PaymentIntent{
		Amount:             amount,
		OrderSource:        enums.OrderSourceOwnStore,
		CommissionRateBps:  rateBps,
		CommissionFixedFee: fixed,
		CommissionMinFee:   min,
		CommissionMaxFee:   max,
	}
}

func TestCommissionFee(t *testing.T) {
	tests := []struct {
		name   string
		intent *models.PaymentIntent
		want   int64
	}{
		{"eight percent of 10000", feeIntent(10000, 800, 0, 0, 0), 800},
		{"rate plus fixed", feeIntent(10000, 250, 100, 0, 0), 350},
		{"floor applies", feeIntent(1000, 100, 0, 50, 0), 50},
		{"ceiling applies", feeIntent(1_000_000, 800, 0, 0, 5000), 5000},
		{"fee never exceeds amount", feeIntent(100, 0, 500, 0, 0), 100},
		{"rounding half up", feeIntent(333, 250, 0, 0, 0), 8},
		{"zero amount", feeIntent(0, 800, 0, 0, 0), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CommissionFee(tc.intent); got != tc.want {
				t.Fatalf("CommissionFee = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCommissionFeeMarketplacePassThrough(t *testing.T) {
	intent := feeIntent(10000, 800, 100, 0, 0)
	intent.OrderSource = enums.OrderSourceMarketplace
	if got := CommissionFee(intent); got != 0 {
		t.Fatalf("marketplace orders take no fee, got %d", got)
	}
}

func TestProportionalFee(t *testing.T) {
	if got := ProportionalFee(800, 10000, 10000, 0); got != 800 {
		t.Fatalf("full refund reverses the whole fee, got %d", got)
	}
	if got := ProportionalFee(800, 2500, 10000, 0); got != 200 {
		t.Fatalf("quarter refund reverses a quarter of the fee, got %d", got)
	}
	if got := ProportionalFee(800, 3333, 10000, 0); got != 267 {
		t.Fatalf("proportional fee rounds half up, got %d", got)
	}
	if got := ProportionalFee(0, 2500, 10000, 0); got != 0 {
		t.Fatalf("zero fee stays zero, got %d", got)
	}
	if got := ProportionalFee(800, 20000, 10000, 0); got != 800 {
		t.Fatalf("over-refund caps at total fee, got %d", got)
	}
}

func TestProportionalFeeSuccessiveRefundsNeverExceedCaptureFee(t *testing.T) {
	const totalFee, intentAmount = int64(800), int64(10000)
	refunds := []int64{3333, 3333, 3334}

	var refunded, reversed int64
	for _, amount := range refunds {
		share := ProportionalFee(totalFee, amount, intentAmount, refunded)
		if share < 0 {
			t.Fatalf("negative fee share %d at refunded=%d", share, refunded)
		}
		refunded += amount
		reversed += share
		if reversed > totalFee {
			t.Fatalf("reversed %d exceeds capture fee %d after refunding %d", reversed, totalFee, refunded)
		}
	}
	if reversed != totalFee {
		t.Fatalf("full refund sequence must reverse the whole fee, got %d", reversed)
	}
}
