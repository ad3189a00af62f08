package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// Payout moves settled balance to an external bank account. BankSnapshot is
// taken at request time; later changes to the merchant's bank profile cannot
// alter an in-flight payout.
type Payout struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	StoreID        uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	Amount         int64              `gorm:"column:amount;not null"`
	Currency       enums.Currency     `gorm:"column:currency;not null"`
	Status         enums.PayoutStatus `gorm:"column:status;not null;default:'requested'"`
	BankSnapshot   json.RawMessage    `gorm:"column:bank_snapshot;type:jsonb;not null"`
	IdempotencyKey string             `gorm:"column:idempotency_key;not null;uniqueIndex"`
	FailureReason  *string            `gorm:"column:failure_reason"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
