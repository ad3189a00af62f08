package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// Repository manages payment intents, their audit events and refunds.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error
	FindIntentByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	FindIntentByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIntent, error)
	FindIntentByProviderIntentID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error)
	UpdateIntent(ctx context.Context, intent *models.PaymentIntent) error
	// TransitionIntent moves the intent to newStatus and applies the column
	// updates, guarded by a version compare-and-swap. A concurrent writer wins
	// the race; the loser gets OPTIMISTIC_LOCK_CONFLICT.
	TransitionIntent(ctx context.Context, intent *models.PaymentIntent, newStatus enums.PaymentStatus, updates map[string]any) error

	CreateEvent(ctx context.Context, event *models.PaymentEvent) error
	FindEventByIdempotencyKey(ctx context.Context, key string) (*models.PaymentEvent, error)
	ListEventsByIntent(ctx context.Context, intentID uuid.UUID) ([]models.PaymentEvent, error)

	CreateRefund(ctx context.Context, refund *models.Refund) error
	FindRefundByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	FindRefundByIdempotencyKey(ctx context.Context, key string) (*models.Refund, error)
	UpdateRefund(ctx context.Context, refund *models.Refund) error
	ListRefundsByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Refund, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *repository) FindIntentByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindIntentByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindIntentByProviderIntentID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).Where("provider_intent_id = ?", providerIntentID).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

func (r *repository) UpdateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	if intent == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent is required")
	}
	return r.db.WithContext(ctx).Save(intent).Error
}

func (r *repository) TransitionIntent(ctx context.Context, intent *models.PaymentIntent, newStatus enums.PaymentStatus, updates map[string]any) error {
	if intent == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent is required")
	}
	set := map[string]any{
		"status":  newStatus,
		"version": intent.Version + 1,
	}
	for column, value := range updates {
		set[column] = value
	}

	result := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND version = ?", intent.ID, intent.Version).
		Updates(set)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeOptimisticLockConflict, "intent was updated concurrently")
	}

	intent.Status = newStatus
	intent.Version++
	return nil
}

func (r *repository) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindEventByIdempotencyKey(ctx context.Context, key string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListEventsByIntent(ctx context.Context, intentID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("intent_id = ?", intentID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindRefundByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&refund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		return nil, err
	}
	return &refund, nil
}

func (r *repository) FindRefundByIdempotencyKey(ctx context.Context, key string) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

func (r *repository) UpdateRefund(ctx context.Context, refund *models.Refund) error {
	if refund == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund is required")
	}
	return r.db.WithContext(ctx).Save(refund).Error
}

func (r *repository) ListRefundsByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Refund, error) {
	var refunds []models.Refund
	if err := r.db.WithContext(ctx).
		Where("intent_id = ?", intentID).
		Order("created_at ASC").
		Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}
