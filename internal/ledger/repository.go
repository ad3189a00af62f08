package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
)

// Repository manages persistence for ledger transactions. Rows are append
// only; there is no update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.LedgerTransaction) error
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.LedgerTransaction, error)
	ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerTransaction, error)
	// PayableBalance derives the merchant's withdrawable balance strictly from
	// ledger entries. Capture credits only count once the transaction has
	// matured past the settlement cutoff; debits and reversal credits always
	// count.
	PayableBalance(ctx context.Context, storeID uuid.UUID, maturedBefore time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.LedgerTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.LedgerTransaction, error) {
	var txns []models.LedgerTransaction
	if err := r.db.WithContext(ctx).
		Preload("Entries").
		Where("store_id = ?", storeID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerTransaction, error) {
	var txns []models.LedgerTransaction
	if err := r.db.WithContext(ctx).
		Preload("Entries").
		Where("reference_id = ?", referenceID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) PayableBalance(ctx context.Context, storeID uuid.UUID, maturedBefore time.Time) (int64, error) {
	// Payable-balance credits are negative amounts, so the balance is the
	// negated sum. Only capture credits wait out the settlement window; debits
	// and reversal credits (failed payouts) apply immediately.
	var sum *int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("SUM(ledger_entries.amount)").
		Joins("JOIN ledger_transactions ON ledger_transactions.id = ledger_entries.transaction_id").
		Where("ledger_transactions.store_id = ?", storeID).
		Where("ledger_entries.account = ?", enums.LedgerAccountPayableBalance).
		Where("ledger_entries.amount > 0 OR ledger_transactions.type <> ? OR ledger_transactions.created_at <= ?",
			enums.LedgerTransactionTypePaymentCaptured, maturedBefore).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return -*sum, nil
}
