package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// Refund is one refund request against a payment intent. Created once per
// distinct idempotency key; status only moves forward.
type Refund struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	IntentID         uuid.UUID          `gorm:"column:intent_id;type:uuid;not null;index"`
	IdempotencyKey   string             `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Amount           int64              `gorm:"column:amount;not null"`
	Reason           string             `gorm:"column:reason;not null"`
	Status           enums.RefundStatus `gorm:"column:status;not null;default:'pending'"`
	ProviderRefundID *string            `gorm:"column:provider_refund_id"`
	FeeAmount        int64              `gorm:"column:fee_amount;not null;default:0"`
	IsFull           bool               `gorm:"column:is_full;not null;default:false"`
	OperatorID       uuid.UUID          `gorm:"column:operator_id;type:uuid;not null"`
	Note             *string            `gorm:"column:note"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
