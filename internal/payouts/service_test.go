package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/internal/ledger"
	storespkg "github.com/cokeastorga/paylane/internal/stores"
	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type allowAllGuard struct{}

func (allowAllGuard) CheckPayout(ctx context.Context, storeID uuid.UUID, amount int64) error {
	return nil
}

type rejectGuard struct{}

func (rejectGuard) CheckPayout(ctx context.Context, storeID uuid.UUID, amount int64) error {
	return pkgerrors.New(pkgerrors.CodePayoutExceedsDailyLimit, "daily payout ceiling reached")
}

type harness struct {
	db      *gorm.DB
	service *Service
	store   *models.Store
}

func newHarness(t *testing.T, guard PayoutGuard) *harness {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Store{}, &models.BankAccount{}, &models.Payout{},
		&models.LedgerTransaction{}, &models.LedgerEntry{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := &models.Store{
		ID:              uuid.New(),
		Name:            "Payout Store",
		Status:          enums.StoreStatusActive,
		PaymentsEnabled: true,
		Country:         "CL",
		Currency:        enums.CurrencyCLP,
	}
	if err := conn.Create(store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}

	service, err := NewService(ServiceParams{
		Tx:               &gormTxRunner{db: conn},
		Repo:             NewRepository(conn),
		Stores:           storespkg.NewRepository(conn),
		Ledger:           ledger.NewRepository(conn),
		Guard:            guard,
		Outbox:           outbox.NewService(outbox.NewRepository(conn), nil),
		SettlementWindow: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &harness{db: conn, service: service, store: store}
}

func (h *harness) seedBankAccount(t *testing.T, verified bool) {
	t.Helper()
	account := &models.BankAccount{
		ID:            uuid.New(),
		StoreID:       h.store.ID,
		HolderName:    "Comercial Andina SpA",
		BankName:      "Banco Estado",
		AccountNumber: "00123456789",
		AccountType:   "checking",
		Verified:      verified,
	}
	if err := h.db.Create(account).Error; err != nil {
		t.Fatalf("seed bank account: %v", err)
	}
}

// seedMaturedCapture books a capture backdated past the settlement window so
// its net amount is withdrawable.
func (h *harness) seedMaturedCapture(t *testing.T, amount, fee int64, age time.Duration) {
	t.Helper()
	intent := &models.PaymentIntent{
		ID:          uuid.New(),
		StoreID:     h.store.ID,
		OrderID:     uuid.New(),
		Amount:      amount,
		Currency:    enums.CurrencyCLP,
		OrderSource: enums.OrderSourceOwnStore,
	}
	txn, err := ledger.BuildCapture(intent, fee)
	if err != nil {
		t.Fatalf("BuildCapture: %v", err)
	}
	if err := ledger.NewRepository(h.db).Create(context.Background(), txn); err != nil {
		t.Fatalf("create capture: %v", err)
	}
	if age > 0 {
		backdated := time.Now().Add(-age)
		if err := h.db.Model(&models.LedgerTransaction{}).
			Where("id = ?", txn.ID).
			Update("created_at", backdated).Error; err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}
}

func TestRequestPayoutHappyPath(t *testing.T) {
	h := newHarness(t, allowAllGuard{})
	ctx := context.Background()
	h.seedBankAccount(t, true)
	h.seedMaturedCapture(t, 50000, 4000, 48*time.Hour)

	payout, err := h.service.RequestPayout(ctx, h.store.ID, 30000, enums.CurrencyCLP)
	if err != nil {
		t.Fatalf("RequestPayout: %v", err)
	}
	if payout.Status != enums.PayoutStatusRequested {
		t.Fatalf("expected requested, got %s", payout.Status)
	}
	if len(payout.BankSnapshot) == 0 {
		t.Fatal("bank snapshot must be captured at request time")
	}

	// The requested ledger movement reserves the balance immediately.
	balance, err := h.service.PayoutableBalance(ctx, h.store.ID)
	if err != nil {
		t.Fatalf("PayoutableBalance: %v", err)
	}
	if balance != 16000 {
		t.Fatalf("expected 46000-30000=16000 after reservation, got %d", balance)
	}

	// Same store, amount, currency and day short-circuits.
	again, err := h.service.RequestPayout(ctx, h.store.ID, 30000, enums.CurrencyCLP)
	if err != nil {
		t.Fatalf("RequestPayout replay: %v", err)
	}
	if again.ID != payout.ID {
		t.Fatal("replay created a second payout")
	}
}

func TestRequestPayoutInsufficientMaturedBalance(t *testing.T) {
	h := newHarness(t, allowAllGuard{})
	ctx := context.Background()
	h.seedBankAccount(t, true)
	// 46000 net, but too fresh to have matured.
	h.seedMaturedCapture(t, 50000, 4000, 0)

	_, err := h.service.RequestPayout(ctx, h.store.ID, 30000, enums.CurrencyCLP)
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientBalance) {
		t.Fatalf("expected INSUFFICIENT_BALANCE for unmatured funds, got %v", err)
	}
}

func TestRequestPayoutRequiresVerifiedBankAccount(t *testing.T) {
	h := newHarness(t, allowAllGuard{})
	ctx := context.Background()
	h.seedBankAccount(t, false)
	h.seedMaturedCapture(t, 50000, 0, 48*time.Hour)

	_, err := h.service.RequestPayout(ctx, h.store.ID, 10000, enums.CurrencyCLP)
	if !pkgerrors.Is(err, pkgerrors.CodeBankAccountNotVerified) {
		t.Fatalf("expected BANK_ACCOUNT_NOT_VERIFIED, got %v", err)
	}
}

func TestRequestPayoutSuspendedStore(t *testing.T) {
	h := newHarness(t, allowAllGuard{})
	ctx := context.Background()
	h.store.Status = enums.StoreStatusSuspended
	if err := h.db.Save(h.store).Error; err != nil {
		t.Fatalf("suspend store: %v", err)
	}

	_, err := h.service.RequestPayout(ctx, h.store.ID, 10000, enums.CurrencyCLP)
	if !pkgerrors.Is(err, pkgerrors.CodeStoreSuspended) {
		t.Fatalf("expected STORE_SUSPENDED, got %v", err)
	}
}

func TestRequestPayoutVelocityCeiling(t *testing.T) {
	h := newHarness(t, rejectGuard{})
	ctx := context.Background()
	h.seedBankAccount(t, true)
	h.seedMaturedCapture(t, 50000, 0, 48*time.Hour)

	_, err := h.service.RequestPayout(ctx, h.store.ID, 10000, enums.CurrencyCLP)
	if !pkgerrors.Is(err, pkgerrors.CodePayoutExceedsDailyLimit) {
		t.Fatalf("expected PAYOUT_EXCEEDS_DAILY_LIMIT, got %v", err)
	}
}

func TestPayoutLifecycleForwardOnly(t *testing.T) {
	h := newHarness(t, allowAllGuard{})
	ctx := context.Background()
	h.seedBankAccount(t, true)
	h.seedMaturedCapture(t, 50000, 0, 48*time.Hour)

	payout, err := h.service.RequestPayout(ctx, h.store.ID, 30000, enums.CurrencyCLP)
	if err != nil {
		t.Fatalf("RequestPayout: %v", err)
	}

	// Cannot settle before processing.
	if _, err := h.service.FinalizePayout(ctx, payout.ID); err == nil {
		t.Fatal("finalize before processing must fail")
	}

	if _, err := h.service.MarkProcessing(ctx, payout.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	// Processing twice violates the sequence.
	if _, err := h.service.MarkProcessing(ctx, payout.ID); err == nil {
		t.Fatal("double processing must fail")
	}

	settled, err := h.service.FinalizePayout(ctx, payout.ID)
	if err != nil {
		t.Fatalf("FinalizePayout: %v", err)
	}
	if settled.Status != enums.PayoutStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", settled.Status)
	}

	// Terminal payouts cannot fail afterwards.
	if _, err := h.service.FailPayout(ctx, payout.ID, "late bounce"); err == nil {
		t.Fatal("failing a settled payout must be rejected")
	}

	var txnCount int64
	h.db.Model(&models.LedgerTransaction{}).Count(&txnCount)
	// capture + requested + processing marker + succeeded
	if txnCount != 4 {
		t.Fatalf("expected 4 ledger transactions, got %d", txnCount)
	}
}

func TestListByStorePagesAndFiltersByStatus(t *testing.T) {
	h := newHarness(t, allowAllGuard{})
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	statuses := []enums.PayoutStatus{
		enums.PayoutStatusRequested,
		enums.PayoutStatusSucceeded,
		enums.PayoutStatusRequested,
		enums.PayoutStatusSucceeded,
		enums.PayoutStatusFailed,
	}
	for i, status := range statuses {
		payout := &models.Payout{
			ID:             uuid.New(),
			StoreID:        h.store.ID,
			Amount:         int64(1000 * (i + 1)),
			Currency:       enums.CurrencyCLP,
			Status:         status,
			BankSnapshot:   []byte(`{}`),
			IdempotencyKey: uuid.NewString(),
		}
		if err := h.db.Create(payout).Error; err != nil {
			t.Fatalf("seed payout: %v", err)
		}
		if err := h.db.Model(&models.Payout{}).
			Where("id = ?", payout.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error; err != nil {
			t.Fatalf("stagger created_at: %v", err)
		}
	}

	first, next, err := h.service.ListByStore(ctx, h.store.ID, ListParams{Limit: 2})
	if err != nil {
		t.Fatalf("ListByStore: %v", err)
	}
	if len(first) != 2 || next == "" {
		t.Fatalf("expected a full first page with a cursor, got %d rows", len(first))
	}
	if first[0].Amount != 5000 || first[1].Amount != 4000 {
		t.Fatalf("expected newest first, got %d %d", first[0].Amount, first[1].Amount)
	}

	second, _, err := h.service.ListByStore(ctx, h.store.ID, ListParams{Limit: 2, Cursor: next})
	if err != nil {
		t.Fatalf("ListByStore second page: %v", err)
	}
	if len(second) != 2 || second[0].Amount != 3000 {
		t.Fatalf("cursor must resume after the last served row, got %d rows starting at %d", len(second), second[0].Amount)
	}

	succeeded := enums.PayoutStatusSucceeded
	settled, _, err := h.service.ListByStore(ctx, h.store.ID, ListParams{Status: &succeeded})
	if err != nil {
		t.Fatalf("ListByStore filtered: %v", err)
	}
	if len(settled) != 2 {
		t.Fatalf("expected 2 succeeded payouts, got %d", len(settled))
	}
	for _, payout := range settled {
		if payout.Status != enums.PayoutStatusSucceeded {
			t.Fatalf("status filter leaked %s", payout.Status)
		}
	}

	if _, _, err := h.service.ListByStore(ctx, h.store.ID, ListParams{Cursor: "%%%"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for malformed cursor, got %v", err)
	}
}

func TestFailPayoutRestoresBalance(t *testing.T) {
	h := newHarness(t, allowAllGuard{})
	ctx := context.Background()
	h.seedBankAccount(t, true)
	h.seedMaturedCapture(t, 50000, 4000, 48*time.Hour)

	payout, err := h.service.RequestPayout(ctx, h.store.ID, 30000, enums.CurrencyCLP)
	if err != nil {
		t.Fatalf("RequestPayout: %v", err)
	}

	failed, err := h.service.FailPayout(ctx, payout.ID, "account closed")
	if err != nil {
		t.Fatalf("FailPayout: %v", err)
	}
	if failed.FailureReason == nil || *failed.FailureReason != "account closed" {
		t.Fatal("failure reason must be recorded")
	}

	balance, err := h.service.PayoutableBalance(ctx, h.store.ID)
	if err != nil {
		t.Fatalf("PayoutableBalance: %v", err)
	}
	if balance != 46000 {
		t.Fatalf("reversal must restore the full 46000, got %d", balance)
	}
}
