package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// PaymentEvent is the append-only audit record of every processed, deduped or
// ignored payment signal. Rows are never mutated.
type PaymentEvent struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	IntentID        uuid.UUID            `gorm:"column:intent_id;type:uuid;not null;index"`
	IdempotencyKey  string               `gorm:"column:idempotency_key;not null;uniqueIndex"`
	ProviderEventID *string              `gorm:"column:provider_event_id"`
	OldStatus       enums.PaymentStatus  `gorm:"column:old_status;not null"`
	NewStatus       enums.PaymentStatus  `gorm:"column:new_status;not null"`
	Outcome         PaymentEventOutcome  `gorm:"column:outcome;not null;default:'applied'"`
	RawPayload      json.RawMessage      `gorm:"column:raw_payload;type:jsonb"`
	Checksum        string               `gorm:"column:checksum;not null"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// PaymentEventOutcome records how the engine handled an inbound signal.
type PaymentEventOutcome string

const (
	PaymentEventOutcomeApplied    PaymentEventOutcome = "applied"
	PaymentEventOutcomeDeduped    PaymentEventOutcome = "deduped"
	PaymentEventOutcomeOrphan     PaymentEventOutcome = "orphan"
	PaymentEventOutcomeOutOfOrder PaymentEventOutcome = "out_of_order"
)
