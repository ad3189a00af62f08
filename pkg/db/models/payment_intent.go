package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// PaymentIntent is one attempt to collect money for one order. Rows are never
// deleted; terminal statuses are final.
type PaymentIntent struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID          uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	IdempotencyKey   string              `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Amount           int64               `gorm:"column:amount;not null"`
	Currency         enums.Currency      `gorm:"column:currency;not null"`
	Country          string              `gorm:"column:country;not null"`
	Method           enums.PaymentMethod `gorm:"column:method;not null"`
	Provider         enums.Provider      `gorm:"column:provider;not null"`
	ProviderIntentID *string             `gorm:"column:provider_intent_id"`
	Status           enums.PaymentStatus `gorm:"column:status;not null;default:'created'"`
	ClientURL        *string             `gorm:"column:client_url"`
	ClientSecret     *string             `gorm:"column:client_secret"`
	ExpiresAt        *time.Time          `gorm:"column:expires_at"`
	RefundedAmount   int64               `gorm:"column:refunded_amount;not null;default:0"`
	RefundCount      int                 `gorm:"column:refund_count;not null;default:0"`
	OrderSource      enums.OrderSource   `gorm:"column:order_source;not null;default:'own_store'"`

	// Commission snapshot taken at creation; immutable once set.
	CommissionRateBps  int   `gorm:"column:commission_rate_bps;not null;default:0"`
	CommissionFixedFee int64 `gorm:"column:commission_fixed_fee;not null;default:0"`
	CommissionMinFee   int64 `gorm:"column:commission_min_fee;not null;default:0"`
	CommissionMaxFee   int64 `gorm:"column:commission_max_fee;not null;default:0"`

	Version   int       `gorm:"column:version;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
