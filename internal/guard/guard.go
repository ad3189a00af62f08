// Package guard enforces per-store daily velocity ceilings for refunds and
// payouts. Sums are derived from the database at check time, so the ceilings
// hold across restarts and multiple operators.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/config"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// Sums reads the daily totals the guard compares against.
type Sums interface {
	// RefundedToday sums refunds created since dayStart that are not failed or
	// canceled, for every intent belonging to the store.
	RefundedToday(ctx context.Context, storeID uuid.UUID, dayStart time.Time) (int64, error)
	// PaidOutToday sums payouts created since dayStart that are not failed.
	PaidOutToday(ctx context.Context, storeID uuid.UUID, dayStart time.Time) (int64, error)
}

// Guard checks velocity limits before money-moving operations.
type Guard struct {
	sums             Sums
	refundDailyLimit int64
	payoutDailyLimit int64
	now              func() time.Time
}

// GuardParams wires a Guard.
type GuardParams struct {
	Sums   Sums
	Config config.GuardConfig
	Now    func() time.Time
}

// New builds a guard from configuration.
func New(params GuardParams) (*Guard, error) {
	if params.Sums == nil {
		return nil, fmt.Errorf("guard: sums reader is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{
		sums:             params.Sums,
		refundDailyLimit: params.Config.RefundDailyLimit,
		payoutDailyLimit: params.Config.PayoutDailyLimit,
		now:              now,
	}, nil
}

func (g *Guard) dayStart() time.Time {
	t := g.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckRefund rejects the refund when today's refunded total plus the new
// amount would exceed the daily ceiling. A zero ceiling disables the check.
func (g *Guard) CheckRefund(ctx context.Context, storeID uuid.UUID, amount int64) error {
	if g.refundDailyLimit <= 0 {
		return nil
	}
	total, err := g.sums.RefundedToday(ctx, storeID, g.dayStart())
	if err != nil {
		return err
	}
	if total+amount > g.refundDailyLimit {
		return pkgerrors.New(pkgerrors.CodeRefundExceedsDailyLimit, "daily refund ceiling reached").
			WithDetails(map[string]int64{
				"refunded_today": total,
				"requested":      amount,
				"daily_limit":    g.refundDailyLimit,
			})
	}
	return nil
}

// CheckPayout rejects the payout when today's paid-out total plus the new
// amount would exceed the daily ceiling. A zero ceiling disables the check.
func (g *Guard) CheckPayout(ctx context.Context, storeID uuid.UUID, amount int64) error {
	if g.payoutDailyLimit <= 0 {
		return nil
	}
	total, err := g.sums.PaidOutToday(ctx, storeID, g.dayStart())
	if err != nil {
		return err
	}
	if total+amount > g.payoutDailyLimit {
		return pkgerrors.New(pkgerrors.CodePayoutExceedsDailyLimit, "daily payout ceiling reached").
			WithDetails(map[string]int64{
				"paid_out_today": total,
				"requested":      amount,
				"daily_limit":    g.payoutDailyLimit,
			})
	}
	return nil
}
