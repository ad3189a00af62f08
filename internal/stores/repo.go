package stores

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/pkg/db/models"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// Repository handles store and bank account persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to store operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a store by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, err
	}
	return &store, nil
}

// Update saves the provided store.
func (r *Repository) Update(ctx context.Context, store *models.Store) error {
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store is required")
	}
	return r.db.WithContext(ctx).Save(store).Error
}

// VerifiedBankAccount returns the store's verified payout destination, or a
// BANK_ACCOUNT_NOT_VERIFIED error when none exists.
func (r *Repository) VerifiedBankAccount(ctx context.Context, storeID uuid.UUID) (*models.BankAccount, error) {
	var account models.BankAccount
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND verified = ?", storeID, true).
		Order("updated_at DESC").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeBankAccountNotVerified, "store has no verified bank account")
		}
		return nil, err
	}
	return &account, nil
}

// CreateBankAccount persists a payout destination. New accounts always start
// unverified.
func (r *Repository) CreateBankAccount(ctx context.Context, account *models.BankAccount) error {
	if account == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bank account is required")
	}
	account.Verified = false
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(account).Error
}
