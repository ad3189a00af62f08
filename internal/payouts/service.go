// Package payouts moves settled merchant balance to external bank accounts.
// The payoutable balance is always derived from the ledger, restricted to
// funds that matured past the settlement window; there is no cached counter
// to drift out of sync.
package payouts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/internal/ledger"
	"github.com/cokeastorga/paylane/internal/stores"
	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/idempotency"
	"github.com/cokeastorga/paylane/pkg/logger"
	"github.com/cokeastorga/paylane/pkg/metrics"
	"github.com/cokeastorga/paylane/pkg/outbox"
)

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StoreDirectory resolves the store and its verified payout destination.
type StoreDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	VerifiedBankAccount(ctx context.Context, storeID uuid.UUID) (*models.BankAccount, error)
}

// PayoutGuard enforces the daily payout velocity ceiling.
type PayoutGuard interface {
	CheckPayout(ctx context.Context, storeID uuid.UUID, amount int64) error
}

// Emitter queues outbox events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the payout orchestrator.
type ServiceParams struct {
	Tx      TxRunner
	Repo    Repository
	Stores  StoreDirectory
	Ledger  ledger.Repository
	Guard   PayoutGuard
	Outbox  Emitter
	Logg    *logger.Logger
	Metrics *metrics.PaymentMetrics

	SettlementWindow time.Duration
	Now              func() time.Time
}

// Service is the payout orchestrator.
type Service struct {
	tx      TxRunner
	repo    Repository
	stores  StoreDirectory
	ledger  ledger.Repository
	guard   PayoutGuard
	outbox  Emitter
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics

	settlementWindow time.Duration
	now              func() time.Time
}

// NewService validates dependencies and builds the orchestrator.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("payouts service: tx runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts service: repository is required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("payouts service: store directory is required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("payouts service: ledger repository is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("payouts service: payout guard is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("payouts service: outbox emitter is required")
	}
	if params.SettlementWindow <= 0 {
		params.SettlementWindow = 24 * time.Hour
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		tx:               params.Tx,
		repo:             params.Repo,
		stores:           params.Stores,
		ledger:           params.Ledger,
		guard:            params.Guard,
		outbox:           params.Outbox,
		logg:             params.Logg,
		metrics:          params.Metrics,
		settlementWindow: params.SettlementWindow,
		now:              params.Now,
	}, nil
}

// PayoutableBalance is the amount the store may withdraw right now: ledger
// credits matured past the settlement window, minus every debit.
func (s *Service) PayoutableBalance(ctx context.Context, storeID uuid.UUID) (int64, error) {
	cutoff := s.now().Add(-s.settlementWindow)
	return s.ledger.PayableBalance(ctx, storeID, cutoff)
}

// RequestPayout reserves matured balance for withdrawal. The payout row, the
// bank snapshot and the "requested" ledger movement commit atomically.
func (s *Service) RequestPayout(ctx context.Context, storeID uuid.UUID, amount int64, currency enums.Currency) (*models.Payout, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}

	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if err := stores.AssertCanPayout(store); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = store.Currency
	}

	requestedDay := s.now().UTC().Format("2006-01-02")
	key := idempotency.PayoutKey(storeID, amount, currency, requestedDay)
	existing, err := s.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := s.guard.CheckPayout(ctx, storeID, amount); err != nil {
		return nil, err
	}

	account, err := s.stores.VerifiedBankAccount(ctx, storeID)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(map[string]string{
		"holder_name":    account.HolderName,
		"bank_name":      account.BankName,
		"account_number": account.AccountNumber,
		"account_type":   account.AccountType,
	})
	if err != nil {
		return nil, err
	}

	balance, err := s.PayoutableBalance(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "payoutable balance below requested amount").
			WithDetails(map[string]int64{"available": balance, "requested": amount})
	}

	payout := &models.Payout{
		ID:             uuid.New(),
		StoreID:        storeID,
		Amount:         amount,
		Currency:       currency,
		Status:         enums.PayoutStatusRequested,
		BankSnapshot:   snapshot,
		IdempotencyKey: key,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return err
		}
		txn, err := ledger.BuildPayoutRequested(payout)
		if err != nil {
			return err
		}
		if err := s.ledger.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypePayoutRequested,
			AggregateType: enums.OutboxAggregateTypePayout,
			AggregateID:   payout.ID,
			Data: map[string]any{
				"payout_id": payout.ID,
				"store_id":  storeID,
				"amount":    amount,
				"currency":  currency,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayout(enums.PayoutStatusRequested.String())
	if s.logg != nil {
		logCtx := s.logg.WithStoreID(ctx, storeID.String())
		s.logg.Info(logCtx, "payout requested")
	}
	return payout, nil
}

// MarkProcessing records hand-off to the bank rails. Forward-only from
// REQUESTED; the marker ledger transaction moves no balance.
func (s *Service) MarkProcessing(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusRequested {
		return nil, s.invalidSequence(payout, enums.PayoutStatusProcessing)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payout.Status = enums.PayoutStatusProcessing
		if err := s.repo.WithTx(tx).Update(ctx, payout); err != nil {
			return err
		}
		txn, err := ledger.BuildPayoutProcessing(payout)
		if err != nil {
			return err
		}
		return s.ledger.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPayout(enums.PayoutStatusProcessing.String())
	return payout, nil
}

// FinalizePayout settles a PROCESSING payout, releasing the liability.
func (s *Service) FinalizePayout(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusProcessing {
		return nil, s.invalidSequence(payout, enums.PayoutStatusSucceeded)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payout.Status = enums.PayoutStatusSucceeded
		if err := s.repo.WithTx(tx).Update(ctx, payout); err != nil {
			return err
		}
		txn, err := ledger.BuildPayoutSucceeded(payout)
		if err != nil {
			return err
		}
		if err := s.ledger.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypePayoutSucceeded,
			AggregateType: enums.OutboxAggregateTypePayout,
			AggregateID:   payout.ID,
			Data: map[string]any{
				"payout_id":  payout.ID,
				"store_id":   payout.StoreID,
				"amount":     payout.Amount,
				"settled_at": s.now(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPayout(enums.PayoutStatusSucceeded.String())
	return payout, nil
}

// FailPayout reverses the liability back into the payable balance from any
// non-terminal state.
func (s *Service) FailPayout(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	switch payout.Status {
	case enums.PayoutStatusRequested, enums.PayoutStatusProcessing:
	default:
		return nil, s.invalidSequence(payout, enums.PayoutStatusFailed)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payout.Status = enums.PayoutStatusFailed
		payout.FailureReason = &reason
		if err := s.repo.WithTx(tx).Update(ctx, payout); err != nil {
			return err
		}
		txn, err := ledger.BuildPayoutFailed(payout)
		if err != nil {
			return err
		}
		if err := s.ledger.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypePayoutFailed,
			AggregateType: enums.OutboxAggregateTypePayout,
			AggregateID:   payout.ID,
			Data: map[string]any{
				"payout_id": payout.ID,
				"store_id":  payout.StoreID,
				"amount":    payout.Amount,
				"reason":    reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPayout(enums.PayoutStatusFailed.String())
	return payout, nil
}

// ListByStore returns one page of the store's payout history, newest first,
// optionally narrowed to one status.
func (s *Service) ListByStore(ctx context.Context, storeID uuid.UUID, params ListParams) ([]models.Payout, string, error) {
	return s.repo.ListByStore(ctx, storeID, params)
}

func (s *Service) invalidSequence(payout *models.Payout, target enums.PayoutStatus) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "illegal payout status sequence").
		WithDetails(map[string]any{"payout_id": payout.ID, "from": payout.Status, "to": target})
}
