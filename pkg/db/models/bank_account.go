package models

import (
	"time"

	"github.com/google/uuid"
)

// BankAccount is the merchant's payout destination.
type BankAccount struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StoreID       uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	HolderName    string    `gorm:"column:holder_name;not null"`
	BankName      string    `gorm:"column:bank_name;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	AccountType   string    `gorm:"column:account_type;not null"`
	Verified      bool      `gorm:"column:verified;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
