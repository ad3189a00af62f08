package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// Store is the tenant view the payment engine needs: operational state,
// payment switches and the commission schedule applied to new intents.
type Store struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name            string            `gorm:"column:name;not null"`
	Status          enums.StoreStatus `gorm:"column:status;not null;default:'active'"`
	PaymentsEnabled bool              `gorm:"column:payments_enabled;not null;default:true"`
	Country         string            `gorm:"column:country;not null"`
	Currency        enums.Currency    `gorm:"column:currency;not null"`

	CommissionRateBps  int   `gorm:"column:commission_rate_bps;not null;default:0"`
	CommissionFixedFee int64 `gorm:"column:commission_fixed_fee;not null;default:0"`
	CommissionMinFee   int64 `gorm:"column:commission_min_fee;not null;default:0"`
	CommissionMaxFee   int64 `gorm:"column:commission_max_fee;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
