package payouts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/pkg/db/models"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// Repository manages payout persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Payout, error)
	Update(ctx context.Context, payout *models.Payout) error
	ListByStore(ctx context.Context, storeID uuid.UUID, params ListParams) ([]models.Payout, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) Update(ctx context.Context, payout *models.Payout) error {
	if payout == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payout is required")
	}
	return r.db.WithContext(ctx).Save(payout).Error
}

// ListByStore pages newest first, optionally narrowed to one status. One row
// beyond the page size is fetched to detect the next page; the returned
// cursor is empty on the last page.
func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, params ListParams) ([]models.Payout, string, error) {
	limit := pageSize(params.Limit)

	query := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	cursor, err := decodeListCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.createdAt, cursor.createdAt, cursor.id,
		)
	}

	var payouts []models.Payout
	if err := query.Find(&payouts).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(payouts) > limit {
		payouts = payouts[:limit]
		next = encodeListCursor(payouts[len(payouts)-1])
	}
	return payouts, next, nil
}
