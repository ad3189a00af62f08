package guard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
)

// DBSums derives the guard totals from refund and payout rows.
type DBSums struct {
	db *gorm.DB
}

// NewDBSums binds a GORM DB to the guard queries.
func NewDBSums(db *gorm.DB) *DBSums {
	return &DBSums{db: db}
}

func (s *DBSums) RefundedToday(ctx context.Context, storeID uuid.UUID, dayStart time.Time) (int64, error) {
	var sum *int64
	err := s.db.WithContext(ctx).
		Model(&models.Refund{}).
		Select("SUM(refunds.amount)").
		Joins("JOIN payment_intents ON payment_intents.id = refunds.intent_id").
		Where("payment_intents.store_id = ?", storeID).
		Where("refunds.created_at >= ?", dayStart).
		Where("refunds.status NOT IN ?", []enums.RefundStatus{
			enums.RefundStatusFailed,
			enums.RefundStatusCanceled,
		}).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (s *DBSums) PaidOutToday(ctx context.Context, storeID uuid.UUID, dayStart time.Time) (int64, error) {
	var sum *int64
	err := s.db.WithContext(ctx).
		Model(&models.Payout{}).
		Select("SUM(amount)").
		Where("store_id = ?", storeID).
		Where("created_at >= ?", dayStart).
		Where("status <> ?", enums.PayoutStatusFailed).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
