package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// LedgerTransaction is an immutable, balanced set of account movements.
// Corrections are new transactions, never updates.
type LedgerTransaction struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	StoreID     uuid.UUID                   `gorm:"column:store_id;type:uuid;not null;index"`
	ReferenceID uuid.UUID                   `gorm:"column:reference_id;type:uuid;not null;index"`
	OrderSource enums.OrderSource           `gorm:"column:order_source;not null"`
	Type        enums.LedgerTransactionType `gorm:"column:type;not null"`
	Description string                      `gorm:"column:description;not null"`
	Entries     []LedgerEntry               `gorm:"foreignKey:TransactionID"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

// LedgerEntry is one signed movement within a transaction. Debits carry
// positive amounts, credits negative; per transaction the amounts net to zero.
type LedgerEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID uuid.UUID             `gorm:"column:transaction_id;type:uuid;not null;index"`
	Account       enums.LedgerAccount   `gorm:"column:account;not null;index"`
	Amount        int64                 `gorm:"column:amount;not null"`
	Type          enums.LedgerEntryType `gorm:"column:type;not null"`
	Currency      enums.Currency        `gorm:"column:currency;not null"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
