package guard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/config"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

type fakeSums struct {
	refunded int64
	paidOut  int64
	dayStart time.Time
}

func (f *fakeSums) RefundedToday(ctx context.Context, storeID uuid.UUID, dayStart time.Time) (int64, error) {
	f.dayStart = dayStart
	return f.refunded, nil
}

func (f *fakeSums) PaidOutToday(ctx context.Context, storeID uuid.UUID, dayStart time.Time) (int64, error) {
	f.dayStart = dayStart
	return f.paidOut, nil
}

func newTestGuard(t *testing.T, sums *fakeSums) *Guard {
	t.Helper()
	g, err := New(GuardParams{
		Sums: sums,
		Config: config.GuardConfig{
			RefundDailyLimit: 5_000_000,
			PayoutDailyLimit: 20_000_000,
		},
		Now: func() time.Time {
			return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestCheckRefundWithinLimit(t *testing.T) {
	sums := &fakeSums{refunded: 4_000_000}
	g := newTestGuard(t, sums)

	if err := g.CheckRefund(context.Background(), uuid.New(), 1_000_000); err != nil {
		t.Fatalf("refund at exactly the ceiling must pass: %v", err)
	}
	if !sums.dayStart.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day window must start at UTC midnight, got %v", sums.dayStart)
	}
}

func TestCheckRefundExceedsLimit(t *testing.T) {
	g := newTestGuard(t, &fakeSums{refunded: 4_500_000})

	err := g.CheckRefund(context.Background(), uuid.New(), 600_000)
	if !pkgerrors.Is(err, pkgerrors.CodeRefundExceedsDailyLimit) {
		t.Fatalf("expected REFUND_EXCEEDS_DAILY_LIMIT, got %v", err)
	}
}

func TestCheckPayoutExceedsLimit(t *testing.T) {
	g := newTestGuard(t, &fakeSums{paidOut: 19_999_999})

	err := g.CheckPayout(context.Background(), uuid.New(), 2)
	if !pkgerrors.Is(err, pkgerrors.CodePayoutExceedsDailyLimit) {
		t.Fatalf("expected PAYOUT_EXCEEDS_DAILY_LIMIT, got %v", err)
	}
	if err := g.CheckPayout(context.Background(), uuid.New(), 1); err != nil {
		t.Fatalf("payout at exactly the ceiling must pass: %v", err)
	}
}

func TestZeroLimitDisablesCheck(t *testing.T) {
	g, err := New(GuardParams{Sums: &fakeSums{refunded: 1 << 40, paidOut: 1 << 40}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := g.CheckRefund(context.Background(), uuid.New(), 1); err != nil {
		t.Fatalf("zero refund ceiling must disable the check: %v", err)
	}
	if err := g.CheckPayout(context.Background(), uuid.New(), 1); err != nil {
		t.Fatalf("zero payout ceiling must disable the check: %v", err)
	}
}
