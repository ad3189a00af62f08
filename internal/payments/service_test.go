package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/internal/ledger"
	"github.com/cokeastorga/paylane/internal/providers"
	storespkg "github.com/cokeastorga/paylane/internal/stores"
	"github.com/cokeastorga/paylane/pkg/breaker"
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

func (allowAllGuard) CheckRefund(ctx context.Context, storeID uuid.UUID, amount int64) error {
	return nil
}

type rejectGuard struct{}

func (rejectGuard) CheckRefund(ctx context.Context, storeID uuid.UUID, amount int64) error {
	return pkgerrors.New(pkgerrors.CodeRefundExceedsDailyLimit, "daily refund ceiling reached")
}

// fakeAdapter is a fn-field test double for the provider contract.
type fakeAdapter struct {
	provider      enums.Provider
	createFn      func(ctx context.Context, intent *models.PaymentIntent) (*providers.CreatePaymentResult, error)
	refundFn      func(ctx context.Context, params providers.RefundParams) (*providers.RefundResult, error)
	createCalls   int
	refundCalls   int
	queryStatusFn func(ctx context.Context, providerIntentID string) (*providers.StatusResult, error)
}

func (f *fakeAdapter) Provider() enums.Provider { return f.provider }

func (f *fakeAdapter) CreatePayment(ctx context.Context, intent *models.PaymentIntent) (*providers.CreatePaymentResult, error) {
	f.createCalls++
	if f.createFn != nil {
		return f.createFn(ctx, intent)
	}
	url := "https://psp.test/pay"
	return &providers.CreatePaymentResult{ProviderIntentID: "prov_" + intent.ID.String(), ClientURL: &url}, nil
}

type fakeWebhookBody struct {
	EventID  string `json:"event_id"`
	IntentID string `json:"intent_id"`
	Status   string `json:"status"`
}

func (f *fakeAdapter) ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*providers.WebhookEvent, error) {
	var body fakeWebhookBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "bad test payload")
	}
	normalized, err := f.NormalizeStatus(body.Status)
	if err != nil {
		return nil, err
	}
	return &providers.WebhookEvent{
		ProviderEventID:  body.EventID,
		ProviderIntentID: body.IntentID,
		RawStatus:        body.Status,
		NormalizedStatus: normalized,
		OccurredAt:       time.Now(),
	}, nil
}

func (f *fakeAdapter) NormalizeStatus(raw string) (enums.PaymentStatus, error) {
	return enums.ParsePaymentStatus(raw)
}

func (f *fakeAdapter) Refund(ctx context.Context, params providers.RefundParams) (*providers.RefundResult, error) {
	f.refundCalls++
	if f.refundFn != nil {
		return f.refundFn(ctx, params)
	}
	refundID := "prov_ref_" + uuid.NewString()
	return &providers.RefundResult{ProviderRefundID: &refundID, Status: enums.RefundStatusSucceeded}, nil
}

func (f *fakeAdapter) QueryStatus(ctx context.Context, providerIntentID string) (*providers.StatusResult, error) {
	if f.queryStatusFn != nil {
		return f.queryStatusFn(ctx, providerIntentID)
	}
	return &providers.StatusResult{RawStatus: "paid", NormalizedStatus: enums.PaymentStatusPaid, OccurredAt: time.Now()}, nil
}

func (f *fakeAdapter) QueryRefundStatus(ctx context.Context, providerRefundID string) (*providers.RefundResult, error) {
	return &providers.RefundResult{ProviderRefundID: &providerRefundID, Status: enums.RefundStatusSucceeded}, nil
}

type harness struct {
	db      *gorm.DB
	service *Service
	adapter *fakeAdapter
	store   *models.Store
	breaker *breaker.Registry
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithGuard(t, allowAllGuard{})
}

func newHarnessWithGuard(t *testing.T, refundGuard RefundGuard) *harness {
	return newHarnessWith(t, refundGuard, nil)
}

func newHarnessWith(t *testing.T, refundGuard RefundGuard, mutate func(*ServiceParams)) *harness {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Store{}, &models.BankAccount{},
		&models.PaymentIntent{}, &models.PaymentEvent{}, &models.Refund{},
		&models.LedgerTransaction{}, &models.LedgerEntry{},
		&models.OutboxEvent{}, &models.OutboxDLQ{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := &models.Store{
		ID:                uuid.New(),
		Name:              "Test Store",
		Status:            enums.StoreStatusActive,
		PaymentsEnabled:   true,
		Country:           "CL",
		Currency:          enums.CurrencyCLP,
		CommissionRateBps: 800,
	}
	if err := conn.Create(store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}

	adapter := &fakeAdapter{provider: enums.ProviderWebpay}
	registry := providers.NewRegistry(adapter)
	circuits := breaker.NewRegistry(breaker.Options{})
	router := providers.NewRouter(providers.RouterParams{Registry: registry, Breaker: circuits})

	params := ServiceParams{
		Tx:                      &gormTxRunner{db: conn},
		Repo:                    NewRepository(conn),
		Stores:                  storespkg.NewRepository(conn),
		Ledger:                  ledger.NewRepository(conn),
		Router:                  router,
		Registry:                registry,
		Breaker:                 circuits,
		Guard:                   refundGuard,
		Outbox:                  outbox.NewService(outbox.NewRepository(conn), nil),
		RefundApprovalThreshold: 1_000_000,
	}
	if mutate != nil {
		mutate(&params)
	}
	service, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return &harness{db: conn, service: service, adapter: adapter, store: store, breaker: circuits}
}

func (h *harness) createParams() CreateIntentParams {
	return CreateIntentParams{
		StoreID:  h.store.ID,
		OrderID:  uuid.New(),
		Amount:   10000,
		Currency: enums.CurrencyCLP,
		Country:  "CL",
		Method:   enums.PaymentMethodCard,
	}
}

func (h *harness) markPaid(t *testing.T, intent *models.PaymentIntent) {
	t.Helper()
	body, _ := json.Marshal(fakeWebhookBody{
		EventID:  "evt_paid_" + uuid.NewString(),
		IntentID: *intent.ProviderIntentID,
		Status:   "paid",
	})
	result, err := h.service.ProcessWebhook(context.Background(), enums.ProviderWebpay, body, nil)
	if err != nil {
		t.Fatalf("ProcessWebhook paid: %v", err)
	}
	if result.Outcome != models.PaymentEventOutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}
	intent.Status = enums.PaymentStatusPaid
	var fresh models.PaymentIntent
	if err := h.db.First(&fresh, "id = ?", intent.ID).Error; err != nil {
		t.Fatalf("reload intent: %v", err)
	}
	*intent = fresh
}

func TestCreateIntentInitializesAndReuses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	params := h.createParams()

	intent, err := h.service.CreateIntent(ctx, params)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending after init, got %s", intent.Status)
	}
	if intent.ProviderIntentID == nil {
		t.Fatal("provider reference must be recorded")
	}
	if intent.CommissionRateBps != 800 {
		t.Fatalf("commission snapshot missing, got %d bps", intent.CommissionRateBps)
	}

	// Same (store, order, amount, currency) reuses the in-flight intent.
	again, err := h.service.CreateIntent(ctx, params)
	if err != nil {
		t.Fatalf("CreateIntent reuse: %v", err)
	}
	if again.ID != intent.ID {
		t.Fatalf("expected reuse of intent %s, got %s", intent.ID, again.ID)
	}
	if h.adapter.createCalls != 1 {
		t.Fatalf("reuse must not call the provider again, calls=%d", h.adapter.createCalls)
	}
}

func TestCreateIntentAdapterFailure(t *testing.T) {
	h := newHarness(t)
	h.adapter.createFn = func(ctx context.Context, intent *models.PaymentIntent) (*providers.CreatePaymentResult, error) {
		return nil, fmt.Errorf("psp unreachable")
	}

	_, err := h.service.CreateIntent(context.Background(), h.createParams())
	if !pkgerrors.Is(err, pkgerrors.CodeProviderInitFailed) {
		t.Fatalf("expected PROVIDER_INIT_FAILED, got %v", err)
	}

	var intent models.PaymentIntent
	if err := h.db.First(&intent).Error; err != nil {
		t.Fatalf("load intent: %v", err)
	}
	if intent.Status != enums.PaymentStatusFailed {
		t.Fatalf("intent must be recorded failed, got %s", intent.Status)
	}
}

func TestCreateIntentRejectsSettledDuplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	params := h.createParams()

	intent, err := h.service.CreateIntent(ctx, params)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	_, err = h.service.CreateIntent(ctx, params)
	if !pkgerrors.Is(err, pkgerrors.CodeIntentAlreadyPaid) {
		t.Fatalf("expected INTENT_ALREADY_PAID, got %v", err)
	}
}

func TestProcessWebhookPaidWritesLedgerOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	body, _ := json.Marshal(fakeWebhookBody{
		EventID:  "evt_1",
		IntentID: *intent.ProviderIntentID,
		Status:   "paid",
	})
	first, err := h.service.ProcessWebhook(ctx, enums.ProviderWebpay, body, nil)
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if first.Outcome != models.PaymentEventOutcomeApplied {
		t.Fatalf("expected applied, got %s", first.Outcome)
	}

	// Same raw event delivered again: one transition, one ledger transaction.
	second, err := h.service.ProcessWebhook(ctx, enums.ProviderWebpay, body, nil)
	if err != nil {
		t.Fatalf("ProcessWebhook retry: %v", err)
	}
	if second.Outcome != models.PaymentEventOutcomeDeduped {
		t.Fatalf("retry must dedupe, got %s", second.Outcome)
	}

	var txnCount int64
	h.db.Model(&models.LedgerTransaction{}).Count(&txnCount)
	if txnCount != 1 {
		t.Fatalf("expected exactly 1 ledger transaction, got %d", txnCount)
	}

	// 10000 at 8%: FIT 10000, payable -9200, commission -800.
	var entries []models.LedgerEntry
	h.db.Order("amount DESC").Find(&entries)
	if len(entries) != 3 {
		t.Fatalf("expected 3 capture entries, got %d", len(entries))
	}
	if entries[0].Amount != 10000 || entries[1].Amount != -800 || entries[2].Amount != -9200 {
		t.Fatalf("unexpected capture amounts: %d %d %d", entries[0].Amount, entries[1].Amount, entries[2].Amount)
	}

	var outboxCount int64
	h.db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.OutboxEventTypePaymentPaid).Count(&outboxCount)
	if outboxCount != 1 {
		t.Fatalf("expected one payment.paid outbox row, got %d", outboxCount)
	}
}

func TestProcessWebhookOrphanAndOutOfOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	orphanBody, _ := json.Marshal(fakeWebhookBody{EventID: "evt_orphan", IntentID: "prov_unknown", Status: "paid"})
	result, err := h.service.ProcessWebhook(ctx, enums.ProviderWebpay, orphanBody, nil)
	if err != nil {
		t.Fatalf("orphan webhook must be acknowledged: %v", err)
	}
	if result.Outcome != models.PaymentEventOutcomeOrphan {
		t.Fatalf("expected orphan, got %s", result.Outcome)
	}

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	// A stale "pending" webhook arriving after paid must not regress status.
	staleBody, _ := json.Marshal(fakeWebhookBody{EventID: "evt_stale", IntentID: *intent.ProviderIntentID, Status: "pending"})
	result, err = h.service.ProcessWebhook(ctx, enums.ProviderWebpay, staleBody, nil)
	if err != nil {
		t.Fatalf("stale webhook must be acknowledged: %v", err)
	}
	if result.Outcome != models.PaymentEventOutcomeOutOfOrder {
		t.Fatalf("expected out_of_order, got %s", result.Outcome)
	}

	var fresh models.PaymentIntent
	h.db.First(&fresh, "id = ?", intent.ID)
	if fresh.Status != enums.PaymentStatusPaid {
		t.Fatalf("out-of-order webhook mutated status to %s", fresh.Status)
	}
}

// fakeDedupe is an in-memory stand-in for the Redis webhook marker store.
type fakeDedupe struct {
	seen     map[string]bool
	releases int
}

func newFakeDedupe() *fakeDedupe {
	return &fakeDedupe{seen: map[string]bool{}}
}

func (f *fakeDedupe) FirstSeen(ctx context.Context, key string) (bool, error) {
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeDedupe) Release(ctx context.Context, key string) error {
	delete(f.seen, key)
	f.releases++
	return nil
}

// flakyTxRunner fails the next n transactions before delegating.
type flakyTxRunner struct {
	inner    TxRunner
	failures int
}

func (r *flakyTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.failures > 0 {
		r.failures--
		return fmt.Errorf("serialization failure")
	}
	return r.inner.WithTx(ctx, fn)
}

func TestProcessWebhookReleasesDedupeMarkerOnFailure(t *testing.T) {
	dedupe := newFakeDedupe()
	flaky := &flakyTxRunner{}
	h := newHarnessWith(t, allowAllGuard{}, func(p *ServiceParams) {
		flaky.inner = p.Tx
		p.Tx = flaky
		p.Dedupe = dedupe
	})
	ctx := context.Background()

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	body, _ := json.Marshal(fakeWebhookBody{
		EventID:  "evt_flaky",
		IntentID: *intent.ProviderIntentID,
		Status:   "paid",
	})

	flaky.failures = 1
	if _, err := h.service.ProcessWebhook(ctx, enums.ProviderWebpay, body, nil); err == nil {
		t.Fatal("first delivery must surface the transaction failure")
	}
	if dedupe.releases != 1 {
		t.Fatalf("failed delivery must release the dedupe marker, releases=%d", dedupe.releases)
	}

	// The provider's retry of the identical event must apply, not be answered
	// as a duplicate of the failed delivery.
	result, err := h.service.ProcessWebhook(ctx, enums.ProviderWebpay, body, nil)
	if err != nil {
		t.Fatalf("ProcessWebhook retry: %v", err)
	}
	if result.Outcome != models.PaymentEventOutcomeApplied {
		t.Fatalf("expected applied on retry, got %s", result.Outcome)
	}
	var fresh models.PaymentIntent
	h.db.First(&fresh, "id = ?", intent.ID)
	if fresh.Status != enums.PaymentStatusPaid {
		t.Fatalf("retry must settle the intent, got %s", fresh.Status)
	}

	// A further replay short-circuits on the marker, which stays in place.
	replay, err := h.service.ProcessWebhook(ctx, enums.ProviderWebpay, body, nil)
	if err != nil {
		t.Fatalf("ProcessWebhook replay: %v", err)
	}
	if replay.Outcome != models.PaymentEventOutcomeDeduped {
		t.Fatalf("expected deduped replay, got %s", replay.Outcome)
	}
	if dedupe.releases != 1 {
		t.Fatalf("successful processing must keep the marker, releases=%d", dedupe.releases)
	}
}

func TestProcessWebhookRefundWithoutLocalRecordLeavesIntentUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	body, _ := json.Marshal(fakeWebhookBody{
		EventID:  "evt_ref_ext",
		IntentID: *intent.ProviderIntentID,
		Status:   "refunded",
	})
	result, err := h.service.ProcessWebhook(ctx, enums.ProviderWebpay, body, nil)
	if err != nil {
		t.Fatalf("externally settled refund must be acknowledged: %v", err)
	}
	if result.Outcome != models.PaymentEventOutcomeOrphan {
		t.Fatalf("expected orphan, got %s", result.Outcome)
	}

	// No local refund row means no transition, no counters and no reversal.
	var fresh models.PaymentIntent
	h.db.First(&fresh, "id = ?", intent.ID)
	if fresh.Status != enums.PaymentStatusPaid {
		t.Fatalf("intent must stay paid, got %s", fresh.Status)
	}
	if fresh.RefundedAmount != 0 || fresh.RefundCount != 0 {
		t.Fatalf("intent counters mutated: amount=%d count=%d", fresh.RefundedAmount, fresh.RefundCount)
	}
	var refundTxns int64
	h.db.Model(&models.LedgerTransaction{}).
		Where("type = ?", enums.LedgerTransactionTypeRefundSettled).
		Count(&refundTxns)
	if refundTxns != 0 {
		t.Fatalf("no ledger reversal may be written, got %d", refundTxns)
	}

	// The anomaly stays on the audit trail for manual reconciliation.
	var anomalies int64
	h.db.Model(&models.PaymentEvent{}).
		Where("intent_id = ? AND outcome = ?", intent.ID, models.PaymentEventOutcomeOrphan).
		Count(&anomalies)
	if anomalies != 1 {
		t.Fatalf("expected one recorded anomaly, got %d", anomalies)
	}
}

func TestRefundFullReversesLedgerAndFinalizesIntent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	operatorID := uuid.New()
	outcome, err := h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 10000, Reason: "buyer request"}, operatorID)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if outcome.Refund.Status != enums.RefundStatusSucceeded {
		t.Fatalf("expected succeeded refund, got %s", outcome.Refund.Status)
	}
	if outcome.NewIntentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected intent refunded, got %s", outcome.NewIntentStatus)
	}
	if outcome.Refund.FeeAmount != 800 {
		t.Fatalf("full refund reverses full fee, got %d", outcome.Refund.FeeAmount)
	}

	// Full refund reversal: payable 9200, commission 800, FIT -10000.
	var txns []models.LedgerTransaction
	h.db.Where("type = ?", enums.LedgerTransactionTypeRefundSettled).Find(&txns)
	if len(txns) != 1 {
		t.Fatalf("expected 1 refund ledger transaction, got %d", len(txns))
	}

	// Identical request short-circuits on the refund idempotency key.
	again, err := h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 10000, Reason: "buyer request"}, operatorID)
	if err != nil {
		t.Fatalf("Refund replay: %v", err)
	}
	if again.Refund.ID != outcome.Refund.ID {
		t.Fatalf("replay created a second refund")
	}
	if h.adapter.refundCalls != 1 {
		t.Fatalf("replay must not call the provider again, calls=%d", h.adapter.refundCalls)
	}
}

func TestRefundPartialProportionalFee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	outcome, err := h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 2500, Reason: "partial"}, uuid.New())
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if outcome.NewIntentStatus != enums.PaymentStatusPartiallyRefunded {
		t.Fatalf("expected partially_refunded, got %s", outcome.NewIntentStatus)
	}
	if outcome.Refund.FeeAmount != 200 {
		t.Fatalf("quarter refund reverses quarter fee, got %d", outcome.Refund.FeeAmount)
	}

	var fresh models.PaymentIntent
	h.db.First(&fresh, "id = ?", intent.ID)
	if fresh.RefundedAmount != 2500 || fresh.RefundCount != 1 {
		t.Fatalf("intent counters not updated: amount=%d count=%d", fresh.RefundedAmount, fresh.RefundCount)
	}

	// Refunding more than the remainder violates the invariant.
	_, err = h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 8000, Reason: "too much"}, uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeRefundInvalidStatus) {
		t.Fatalf("expected REFUND_INVALID_STATUS for over-refund, got %v", err)
	}
}

func TestRefundHighValueParksForApproval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	params := h.createParams()
	params.Amount = 2_000_000
	intent, err := h.service.CreateIntent(ctx, params)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	requester := uuid.New()
	outcome, err := h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 1_500_000, Reason: "dispute"}, requester)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if outcome.Refund.Status != enums.RefundStatusPendingApproval {
		t.Fatalf("expected pending_approval, got %s", outcome.Refund.Status)
	}
	if h.adapter.refundCalls != 0 {
		t.Fatalf("parked refund must not reach the provider, calls=%d", h.adapter.refundCalls)
	}

	// The requester cannot approve their own refund.
	if _, err := h.service.ApproveRefund(ctx, outcome.Refund.ID, requester); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED for self-approval, got %v", err)
	}

	approved, err := h.service.ApproveRefund(ctx, outcome.Refund.ID, uuid.New())
	if err != nil {
		t.Fatalf("ApproveRefund: %v", err)
	}
	if approved.Refund.Status != enums.RefundStatusSucceeded {
		t.Fatalf("expected succeeded after approval, got %s", approved.Refund.Status)
	}
	if h.adapter.refundCalls != 1 {
		t.Fatalf("approval executes exactly one provider call, calls=%d", h.adapter.refundCalls)
	}
}

func TestRefundWarningDowngradesToManual(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.adapter.refundFn = func(ctx context.Context, params providers.RefundParams) (*providers.RefundResult, error) {
		return nil, pkgerrors.NewWarning(pkgerrors.WarnRefundWindowExpired, "provider refund window closed")
	}

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	outcome, err := h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 5000, Reason: "late"}, uuid.New())
	if err != nil {
		t.Fatalf("warning must not fail the refund: %v", err)
	}
	if !outcome.IsPendingManual || outcome.Refund.Status != enums.RefundStatusPendingManual {
		t.Fatalf("expected pending_manual downgrade, got %s", outcome.Refund.Status)
	}
}

func TestRefundProviderHardFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.adapter.refundFn = func(ctx context.Context, params providers.RefundParams) (*providers.RefundResult, error) {
		return nil, fmt.Errorf("card network rejected")
	}

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	_, err = h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 5000, Reason: "broken"}, uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeRefundProviderFailed) {
		t.Fatalf("expected REFUND_PROVIDER_FAILED, got %v", err)
	}

	var refund models.Refund
	if err := h.db.First(&refund).Error; err != nil {
		t.Fatalf("failed refund must still be recorded: %v", err)
	}
	if refund.Status != enums.RefundStatusFailed {
		t.Fatalf("expected failed refund row, got %s", refund.Status)
	}
}

func TestRefundVelocityCeiling(t *testing.T) {
	h := newHarnessWithGuard(t, rejectGuard{})
	ctx := context.Background()

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	_, err = h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 100, Reason: "x"}, uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeRefundExceedsDailyLimit) {
		t.Fatalf("expected REFUND_EXCEEDS_DAILY_LIMIT, got %v", err)
	}
}

func TestFinalizeRefundSettlesAsyncRefund(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.adapter.refundFn = func(ctx context.Context, params providers.RefundParams) (*providers.RefundResult, error) {
		refundID := "prov_async"
		return &providers.RefundResult{ProviderRefundID: &refundID, Status: enums.RefundStatusPending, IsAsync: true}, nil
	}

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	h.markPaid(t, intent)

	outcome, err := h.service.Refund(ctx, intent.ID, RefundRequest{Amount: 10000, Reason: "async"}, uuid.New())
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if outcome.Refund.Status != enums.RefundStatusPending {
		t.Fatalf("expected pending, got %s", outcome.Refund.Status)
	}

	finalized, err := h.service.FinalizeRefund(ctx, outcome.Refund.ID)
	if err != nil {
		t.Fatalf("FinalizeRefund: %v", err)
	}
	if finalized.NewIntentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded intent, got %s", finalized.NewIntentStatus)
	}

	// Finalizing again is a no-op.
	if _, err := h.service.FinalizeRefund(ctx, outcome.Refund.ID); err != nil {
		t.Fatalf("FinalizeRefund replay: %v", err)
	}

	var txnCount int64
	h.db.Model(&models.LedgerTransaction{}).Where("type = ?", enums.LedgerTransactionTypeRefundSettled).Count(&txnCount)
	if txnCount != 1 {
		t.Fatalf("expected one refund ledger transaction, got %d", txnCount)
	}
}

func TestSyncIntentStatusReconciles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent, err := h.service.CreateIntent(ctx, h.createParams())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	result, err := h.service.SyncIntentStatus(ctx, intent.ID)
	if err != nil {
		t.Fatalf("SyncIntentStatus: %v", err)
	}
	if result.Outcome != models.PaymentEventOutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}

	var fresh models.PaymentIntent
	h.db.First(&fresh, "id = ?", intent.ID)
	if fresh.Status != enums.PaymentStatusPaid {
		t.Fatalf("reconciliation must settle the intent, got %s", fresh.Status)
	}

	// A second sync against the same provider status is a dedupe.
	result, err = h.service.SyncIntentStatus(ctx, intent.ID)
	if err != nil {
		t.Fatalf("SyncIntentStatus replay: %v", err)
	}
	if result.Outcome != models.PaymentEventOutcomeDeduped {
		t.Fatalf("expected deduped, got %s", result.Outcome)
	}
}
