// Package payments orchestrates the payment intent lifecycle: creation and
// provider initialization, webhook-driven status transitions, refunds and
// their ledger reversals. Every state mutation couples the intent update, the
// audit event, the ledger rows and the outbox entry in one transaction.
package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cokeastorga/paylane/internal/ledger"
	"github.com/cokeastorga/paylane/internal/payments/fsm"
	"github.com/cokeastorga/paylane/internal/providers"
	"github.com/cokeastorga/paylane/internal/stores"
	"github.com/cokeastorga/paylane/pkg/breaker"
	dbpkg "github.com/cokeastorga/paylane/pkg/db"
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

// StoreDirectory resolves store context for new intents.
type StoreDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// RefundGuard enforces the daily refund velocity ceiling.
type RefundGuard interface {
	CheckRefund(ctx context.Context, storeID uuid.UUID, amount int64) error
}

// Emitter queues outbox events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// WebhookDedupe is the optional fast-path duplicate check in front of the
// database idempotency key. FirstSeen returns false when the key was already
// marked; Release clears a marker whose delivery failed before the durable
// dedupe row was written. Failures here must degrade to the DB check, never
// block processing.
type WebhookDedupe interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// ServiceParams wires the orchestrator.
type ServiceParams struct {
	Tx       TxRunner
	Repo     Repository
	Stores   StoreDirectory
	Ledger   ledger.Repository
	Router   *providers.Router
	Registry *providers.Registry
	Breaker  *breaker.Registry
	Guard    RefundGuard
	Outbox   Emitter
	Dedupe   WebhookDedupe
	Logg     *logger.Logger
	Metrics  *metrics.PaymentMetrics

	CallTimeout             time.Duration
	RefundApprovalThreshold int64
	Now                     func() time.Time
}

// Service is the payment orchestrator.
type Service struct {
	tx       TxRunner
	repo     Repository
	stores   StoreDirectory
	ledger   ledger.Repository
	router   *providers.Router
	registry *providers.Registry
	breaker  *breaker.Registry
	guard    RefundGuard
	outbox   Emitter
	dedupe   WebhookDedupe
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics

	callTimeout       time.Duration
	approvalThreshold int64
	now               func() time.Time
}

// NewService validates dependencies and builds the orchestrator.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("payments service: tx runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payments service: repository is required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("payments service: store directory is required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("payments service: ledger repository is required")
	}
	if params.Router == nil {
		return nil, fmt.Errorf("payments service: router is required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("payments service: adapter registry is required")
	}
	if params.Breaker == nil {
		return nil, fmt.Errorf("payments service: breaker registry is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("payments service: refund guard is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("payments service: outbox emitter is required")
	}
	if params.CallTimeout <= 0 {
		params.CallTimeout = 10 * time.Second
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		tx:                params.Tx,
		repo:              params.Repo,
		stores:            params.Stores,
		ledger:            params.Ledger,
		router:            params.Router,
		registry:          params.Registry,
		breaker:           params.Breaker,
		guard:             params.Guard,
		outbox:            params.Outbox,
		dedupe:            params.Dedupe,
		logg:              params.Logg,
		metrics:           params.Metrics,
		callTimeout:       params.CallTimeout,
		approvalThreshold: params.RefundApprovalThreshold,
		now:               params.Now,
	}, nil
}

// CreateIntentParams is the orchestrator-facing request for a new charge.
type CreateIntentParams struct {
	StoreID     uuid.UUID
	OrderID     uuid.UUID
	Amount      int64
	Currency    enums.Currency
	Country     string
	Method      enums.PaymentMethod
	OrderSource enums.OrderSource
	// Provider forces a specific PSP instead of the routing table.
	Provider *enums.Provider
}

// CreateIntent resolves store context, routes to a provider, persists a
// CREATED intent and initializes the charge at the PSP. A successful
// initialization advances the intent to PENDING atomically with the provider
// reference; an adapter failure records the intent as FAILED and surfaces
// PROVIDER_INIT_FAILED. Both outcomes feed the circuit breaker.
func (s *Service) CreateIntent(ctx context.Context, params CreateIntentParams) (*models.PaymentIntent, error) {
	if params.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	store, err := s.stores.FindByID(ctx, params.StoreID)
	if err != nil {
		return nil, err
	}
	if err := stores.AssertCanCharge(store); err != nil {
		return nil, err
	}

	if params.Currency == "" {
		params.Currency = store.Currency
	}
	if params.Country == "" {
		params.Country = store.Country
	}
	if params.OrderSource == "" {
		params.OrderSource = enums.OrderSourceOwnStore
	}

	key := idempotency.IntentKey(params.StoreID, params.OrderID, params.Amount, params.Currency)
	existing, err := s.repo.FindIntentByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	outcome, err := idempotency.Resolve(existing)
	if err != nil {
		return nil, err
	}
	if outcome == idempotency.OutcomeReuse {
		return existing, nil
	}

	adapter, err := s.pickAdapter(params)
	if err != nil {
		return nil, err
	}

	intent := &models.PaymentIntent{
		ID:             uuid.New(),
		StoreID:        params.StoreID,
		OrderID:        params.OrderID,
		IdempotencyKey: key,
		Amount:         params.Amount,
		Currency:       params.Currency,
		Country:        params.Country,
		Method:         params.Method,
		Provider:       adapter.Provider(),
		Status:         enums.PaymentStatusCreated,
		OrderSource:    params.OrderSource,

		CommissionRateBps:  store.CommissionRateBps,
		CommissionFixedFee: store.CommissionFixedFee,
		CommissionMinFee:   store.CommissionMinFee,
		CommissionMaxFee:   store.CommissionMaxFee,
	}

	if err := s.repo.CreateIntent(ctx, intent); err != nil {
		// A concurrent request with the same key won the insert race.
		if dbpkg.IsUniqueViolation(err, "") {
			winner, findErr := s.repo.FindIntentByIdempotencyKey(ctx, key)
			if findErr != nil {
				return nil, findErr
			}
			if _, resolveErr := idempotency.Resolve(winner); resolveErr != nil {
				return nil, resolveErr
			}
			return winner, nil
		}
		return nil, err
	}

	s.metrics.IncIntentCreated(intent.Provider.String())

	logCtx := s.logCtx(ctx, intent)
	result, callErr := s.initializeCharge(ctx, adapter, intent)
	if callErr != nil {
		s.noteProviderError(adapter.Provider())
		if failErr := s.markInitFailed(ctx, intent, callErr); failErr != nil {
			s.logError(logCtx, "recording provider init failure", failErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderInitFailed, callErr, "provider rejected the charge")
	}
	s.noteProviderSuccess(adapter.Provider())

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"provider_intent_id": result.ProviderIntentID,
			"client_url":         result.ClientURL,
			"client_secret":      result.ClientSecret,
			"expires_at":         result.ExpiresAt,
		}
		if err := repo.TransitionIntent(ctx, intent, enums.PaymentStatusPending, updates); err != nil {
			return err
		}
		return repo.CreateEvent(ctx, s.internalEvent(intent, enums.PaymentStatusCreated, enums.PaymentStatusPending, models.PaymentEventOutcomeApplied))
	})
	if err != nil {
		return nil, err
	}

	intent.ProviderIntentID = &result.ProviderIntentID
	intent.ClientURL = result.ClientURL
	intent.ClientSecret = result.ClientSecret
	intent.ExpiresAt = result.ExpiresAt
	s.logInfo(logCtx, "payment intent initialized")
	return intent, nil
}

func (s *Service) pickAdapter(params CreateIntentParams) (providers.Adapter, error) {
	if params.Provider != nil {
		return s.router.Pick(*params.Provider)
	}
	return s.router.Route(params.Country, params.Currency, params.Method)
}

func (s *Service) initializeCharge(ctx context.Context, adapter providers.Adapter, intent *models.PaymentIntent) (*providers.CreatePaymentResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	started := s.now()
	result, err := adapter.CreatePayment(callCtx, intent)
	s.metrics.ObserveProviderCall(adapter.Provider().String(), "create_payment", time.Since(started))
	return result, err
}

// noteProviderSuccess and noteProviderError feed the circuit breaker and keep
// the exported circuit gauge in sync with its state.
func (s *Service) noteProviderSuccess(provider enums.Provider) {
	s.breaker.OnSuccess(provider)
	s.metrics.SetCircuitOpen(provider.String(), s.breaker.StateOf(provider) == breaker.StateOpen)
}

func (s *Service) noteProviderError(provider enums.Provider) {
	s.breaker.OnError(provider)
	s.metrics.SetCircuitOpen(provider.String(), s.breaker.StateOf(provider) == breaker.StateOpen)
}

// markInitFailed is the one transition taken outside the FSM table: an intent
// whose charge never initialized is dead on arrival and recorded as FAILED.
func (s *Service) markInitFailed(ctx context.Context, intent *models.PaymentIntent, cause error) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.TransitionIntent(ctx, intent, enums.PaymentStatusFailed, nil); err != nil {
			return err
		}
		if err := repo.CreateEvent(ctx, s.internalEvent(intent, enums.PaymentStatusCreated, enums.PaymentStatusFailed, models.PaymentEventOutcomeApplied)); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypePaymentFailed,
			AggregateType: enums.OutboxAggregateTypePaymentIntent,
			AggregateID:   intent.ID,
			Data:          s.paymentFailedPayload(intent, cause.Error()),
			Version:       1,
		})
	})
}

// WebhookResult reports how an inbound provider event was handled.
type WebhookResult struct {
	Outcome  models.PaymentEventOutcome
	IntentID uuid.UUID
	Status   enums.PaymentStatus
}

// ProcessWebhook verifies, dedupes and applies one provider callback.
// Duplicate deliveries, orphan events and out-of-order transitions are
// acknowledged without mutating the intent; only FSM-legal transitions apply,
// together with their ledger rows, in one transaction.
func (s *Service) ProcessWebhook(ctx context.Context, provider enums.Provider, rawBody []byte, headers map[string]string) (*WebhookResult, error) {
	result, err := s.processWebhook(ctx, provider, rawBody, headers)
	if result != nil {
		s.metrics.IncWebhook(provider.String(), string(result.Outcome))
	}
	return result, err
}

func (s *Service) processWebhook(ctx context.Context, provider enums.Provider, rawBody []byte, headers map[string]string) (result *WebhookResult, retErr error) {
	adapter, err := s.registry.Adapter(provider)
	if err != nil {
		return nil, err
	}
	event, err := adapter.ParseWebhook(ctx, rawBody, headers)
	if err != nil {
		return nil, err
	}

	eventKey := idempotency.EventKey(event.ProviderEventID)
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(ctx, map[string]any{
			"provider":          provider.String(),
			"provider_event_id": event.ProviderEventID,
			"raw_status":        event.RawStatus,
		})
	}

	if s.dedupe != nil {
		first, dedupeErr := s.dedupe.FirstSeen(ctx, eventKey)
		if dedupeErr != nil {
			s.logWarn(logCtx, "webhook dedupe store unavailable, falling back to database check")
		} else if !first {
			return &WebhookResult{Outcome: models.PaymentEventOutcomeDeduped}, nil
		} else {
			// The marker is set but no durable dedupe row exists yet. If
			// processing fails, release it so the provider's retry is not
			// answered as a duplicate while the transition was never applied.
			defer func() {
				if retErr == nil {
					return
				}
				if relErr := s.dedupe.Release(ctx, eventKey); relErr != nil {
					s.logWarn(logCtx, "failed to release webhook dedupe marker")
				}
			}()
		}
	}
	seen, err := s.repo.FindEventByIdempotencyKey(ctx, eventKey)
	if err != nil {
		return nil, err
	}
	if seen != nil {
		return &WebhookResult{Outcome: models.PaymentEventOutcomeDeduped, IntentID: seen.IntentID}, nil
	}

	intent, err := s.repo.FindIntentByProviderIntentID(ctx, event.ProviderIntentID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		s.logWarn(logCtx, "webhook for unknown intent ignored")
		if err := s.recordDetachedEvent(ctx, uuid.Nil, eventKey, event, rawBody, models.PaymentEventOutcomeOrphan); err != nil {
			return nil, err
		}
		return &WebhookResult{Outcome: models.PaymentEventOutcomeOrphan}, nil
	}

	if event.NormalizedStatus == intent.Status {
		if err := s.recordDetachedEvent(ctx, intent.ID, eventKey, event, rawBody, models.PaymentEventOutcomeDeduped); err != nil {
			return nil, err
		}
		return &WebhookResult{Outcome: models.PaymentEventOutcomeDeduped, IntentID: intent.ID, Status: intent.Status}, nil
	}

	if !fsm.IsValidTransition(intent.Status, event.NormalizedStatus) {
		s.logWarn(s.logCtx(logCtx, intent), "out-of-order webhook ignored")
		if err := s.recordDetachedEvent(ctx, intent.ID, eventKey, event, rawBody, models.PaymentEventOutcomeOutOfOrder); err != nil {
			return nil, err
		}
		return &WebhookResult{Outcome: models.PaymentEventOutcomeOutOfOrder, IntentID: intent.ID, Status: intent.Status}, nil
	}

	// A refund settlement with no local refund row has nothing to reverse:
	// record it and acknowledge without touching the intent or the ledger.
	if isRefundStatus(event.NormalizedStatus) {
		refund, err := s.oldestPendingRefund(ctx, s.repo, intent.ID)
		if err != nil {
			return nil, err
		}
		if refund == nil {
			s.logWarn(s.logCtx(logCtx, intent), "refund settled at provider without local refund record")
			if err := s.recordDetachedEvent(ctx, intent.ID, eventKey, event, rawBody, models.PaymentEventOutcomeOrphan); err != nil {
				return nil, err
			}
			return &WebhookResult{Outcome: models.PaymentEventOutcomeOrphan, IntentID: intent.ID, Status: intent.Status}, nil
		}
	}

	if err := s.applyTransition(ctx, intent, event, eventKey, rawBody); err != nil {
		return nil, err
	}
	s.logInfo(s.logCtx(logCtx, intent), "webhook transition applied")
	return &WebhookResult{Outcome: models.PaymentEventOutcomeApplied, IntentID: intent.ID, Status: intent.Status}, nil
}

// recordDetachedEvent persists an audit row for a signal that did not change
// state. A concurrent retry racing on the event key is absorbed as a dedupe.
func (s *Service) recordDetachedEvent(ctx context.Context, intentID uuid.UUID, eventKey string, event *providers.WebhookEvent, rawBody []byte, outcome models.PaymentEventOutcome) error {
	status := event.NormalizedStatus
	row := &models.PaymentEvent{
		IntentID:        intentID,
		IdempotencyKey:  eventKey,
		ProviderEventID: &event.ProviderEventID,
		OldStatus:       status,
		NewStatus:       status,
		Outcome:         outcome,
		RawPayload:      json.RawMessage(rawBody),
		Checksum:        checksum(rawBody),
	}
	if err := s.repo.CreateEvent(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) applyTransition(ctx context.Context, intent *models.PaymentIntent, event *providers.WebhookEvent, eventKey string, rawBody []byte) error {
	oldStatus := intent.Status
	newStatus := event.NormalizedStatus

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledgerRepo := s.ledger.WithTx(tx)

		switch newStatus {
		case enums.PaymentStatusPaid:
			fee := CommissionFee(intent)
			txn, err := ledger.BuildCapture(intent, fee)
			if err != nil {
				return err
			}
			if err := ledgerRepo.Create(ctx, txn); err != nil {
				return err
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventTypePaymentPaid,
				AggregateType: enums.OutboxAggregateTypePaymentIntent,
				AggregateID:   intent.ID,
				Data:          s.paymentPaidPayload(intent, fee, event.OccurredAt),
				Version:       1,
			}); err != nil {
				return err
			}

		case enums.PaymentStatusRefunded, enums.PaymentStatusPartiallyRefunded:
			// Provider-confirmed async refund. The caller verified a pending
			// refund exists; a nil here means a concurrent settlement won.
			refund, err := s.oldestPendingRefund(ctx, repo, intent.ID)
			if err != nil {
				return err
			}
			if refund == nil {
				return pkgerrors.New(pkgerrors.CodeOptimisticLockConflict, "pending refund settled concurrently")
			}
			if err := s.settleRefundTx(ctx, tx, intent, refund); err != nil {
				return err
			}
			// settleRefundTx already advanced the intent and wrote the audit
			// trail; record the provider event and stop.
			return repo.CreateEvent(ctx, &models.PaymentEvent{
				IntentID:        intent.ID,
				IdempotencyKey:  eventKey,
				ProviderEventID: &event.ProviderEventID,
				OldStatus:       oldStatus,
				NewStatus:       intent.Status,
				Outcome:         models.PaymentEventOutcomeApplied,
				RawPayload:      json.RawMessage(rawBody),
				Checksum:        checksum(rawBody),
			})

		case enums.PaymentStatusFailed:
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventTypePaymentFailed,
				AggregateType: enums.OutboxAggregateTypePaymentIntent,
				AggregateID:   intent.ID,
				Data:          s.paymentFailedPayload(intent, event.RawStatus),
				Version:       1,
			}); err != nil {
				return err
			}

		case enums.PaymentStatusCanceled:
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventTypePaymentCanceled,
				AggregateType: enums.OutboxAggregateTypePaymentIntent,
				AggregateID:   intent.ID,
				Data:          s.paymentCanceledPayload(intent, event.OccurredAt),
				Version:       1,
			}); err != nil {
				return err
			}
		}

		if err := repo.TransitionIntent(ctx, intent, newStatus, nil); err != nil {
			return err
		}
		return repo.CreateEvent(ctx, &models.PaymentEvent{
			IntentID:        intent.ID,
			IdempotencyKey:  eventKey,
			ProviderEventID: &event.ProviderEventID,
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			Outcome:         models.PaymentEventOutcomeApplied,
			RawPayload:      json.RawMessage(rawBody),
			Checksum:        checksum(rawBody),
		})
	})
	if err != nil {
		return err
	}
	s.metrics.IncTransition(oldStatus.String(), intent.Status.String())
	return nil
}

func isRefundStatus(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusRefunded || status == enums.PaymentStatusPartiallyRefunded
}

func (s *Service) oldestPendingRefund(ctx context.Context, repo Repository, intentID uuid.UUID) (*models.Refund, error) {
	refunds, err := repo.ListRefundsByIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	for i := range refunds {
		if refunds[i].Status == enums.RefundStatusPending {
			return &refunds[i], nil
		}
	}
	return nil, nil
}

// RefundRequest is the operator-facing refund input.
type RefundRequest struct {
	Amount int64
	Reason string
	Note   *string
}

// RefundOutcome is what the admin surface receives back.
type RefundOutcome struct {
	Refund          *models.Refund
	NewIntentStatus enums.PaymentStatus
	IsPendingManual bool
}

// Refund executes an operator-initiated refund: velocity check, idempotency
// short-circuit, dual-control parking for high amounts, then the provider
// call. A SUCCEEDED adapter result settles the refund, the intent counters and
// the ledger reversal in one transaction.
func (s *Service) Refund(ctx context.Context, intentID uuid.UUID, request RefundRequest, operatorID uuid.UUID) (*RefundOutcome, error) {
	intent, err := s.repo.FindIntentByID(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if err := s.guard.CheckRefund(ctx, intent.StoreID, request.Amount); err != nil {
		return nil, err
	}

	key := idempotency.RefundKey(intentID, request.Amount, request.Reason, operatorID)
	existing, err := s.repo.FindRefundByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &RefundOutcome{
			Refund:          existing,
			NewIntentStatus: intent.Status,
			IsPendingManual: existing.Status == enums.RefundStatusPendingManual,
		}, nil
	}

	if !fsm.IsRefundable(intent.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeRefundInvalidStatus, "intent is not refundable").
			WithDetails(map[string]any{"status": intent.Status})
	}
	if err := fsm.AssertRefundInvariant(intent.Amount, intent.RefundedAmount, request.Amount); err != nil {
		return nil, err
	}

	refund := &models.Refund{
		ID:             uuid.New(),
		IntentID:       intentID,
		IdempotencyKey: key,
		Amount:         request.Amount,
		Reason:         request.Reason,
		FeeAmount:      ProportionalFee(CommissionFee(intent), request.Amount, intent.Amount, intent.RefundedAmount),
		IsFull:         intent.RefundedAmount+request.Amount >= intent.Amount,
		OperatorID:     operatorID,
		Note:           request.Note,
	}

	// High-value refunds park for dual-control review instead of executing.
	if s.approvalThreshold > 0 && request.Amount >= s.approvalThreshold {
		refund.Status = enums.RefundStatusPendingApproval
		if err := s.persistPendingRefund(ctx, intent, refund); err != nil {
			return nil, err
		}
		return &RefundOutcome{Refund: refund, NewIntentStatus: intent.Status}, nil
	}

	return s.executeRefund(ctx, intent, refund)
}

// ApproveRefund releases a parked high-value refund for execution.
func (s *Service) ApproveRefund(ctx context.Context, refundID, approverID uuid.UUID) (*RefundOutcome, error) {
	refund, err := s.repo.FindRefundByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if refund.Status != enums.RefundStatusPendingApproval {
		return nil, pkgerrors.New(pkgerrors.CodeRefundInvalidStatus, "refund is not awaiting approval").
			WithDetails(map[string]any{"status": refund.Status})
	}
	if refund.OperatorID == approverID {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refund approver must differ from requester")
	}
	intent, err := s.repo.FindIntentByID(ctx, refund.IntentID)
	if err != nil {
		return nil, err
	}
	if !fsm.IsRefundable(intent.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeRefundInvalidStatus, "intent is no longer refundable").
			WithDetails(map[string]any{"status": intent.Status})
	}
	if err := fsm.AssertRefundInvariant(intent.Amount, intent.RefundedAmount, refund.Amount); err != nil {
		return nil, err
	}
	return s.executeRefund(ctx, intent, refund)
}

// CancelRefund withdraws a refund that has not reached the provider yet.
func (s *Service) CancelRefund(ctx context.Context, refundID uuid.UUID) (*models.Refund, error) {
	refund, err := s.repo.FindRefundByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	switch refund.Status {
	case enums.RefundStatusPendingApproval, enums.RefundStatusPendingManual:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeRefundInvalidStatus, "only parked refunds can be canceled").
			WithDetails(map[string]any{"status": refund.Status})
	}
	refund.Status = enums.RefundStatusCanceled
	if err := s.repo.UpdateRefund(ctx, refund); err != nil {
		return nil, err
	}
	return refund, nil
}

func (s *Service) executeRefund(ctx context.Context, intent *models.PaymentIntent, refund *models.Refund) (*RefundOutcome, error) {
	adapter, err := s.registry.Adapter(intent.Provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	providerIntentID := ""
	if intent.ProviderIntentID != nil {
		providerIntentID = *intent.ProviderIntentID
	}
	result, callErr := adapter.Refund(callCtx, providers.RefundParams{
		ProviderIntentID: providerIntentID,
		IntentID:         intent.ID,
		Amount:           refund.Amount,
		Currency:         intent.Currency,
		Reason:           refund.Reason,
	})

	if callErr != nil {
		if warning := pkgerrors.AsWarning(callErr); warning != nil {
			s.noteProviderSuccess(intent.Provider)
			refund.Status = enums.RefundStatusPendingManual
			if err := s.persistPendingRefund(ctx, intent, refund); err != nil {
				return nil, err
			}
			s.logWarn(s.logCtx(ctx, intent), "refund downgraded to manual handling: "+warning.Error())
			return &RefundOutcome{Refund: refund, NewIntentStatus: intent.Status, IsPendingManual: true}, nil
		}
		s.noteProviderError(intent.Provider)
		refund.Status = enums.RefundStatusFailed
		if err := s.saveRefund(ctx, refund); err != nil {
			s.logError(s.logCtx(ctx, intent), "recording failed refund", err)
		}
		s.metrics.IncRefund(enums.RefundStatusFailed.String())
		return nil, pkgerrors.Wrap(pkgerrors.CodeRefundProviderFailed, callErr, "provider refused the refund")
	}
	s.noteProviderSuccess(intent.Provider)
	refund.ProviderRefundID = result.ProviderRefundID

	switch result.Status {
	case enums.RefundStatusSucceeded:
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.createRefundTx(ctx, tx, refund); err != nil {
				return err
			}
			return s.settleRefundTx(ctx, tx, intent, refund)
		})
		if err != nil {
			return nil, err
		}
		s.metrics.IncRefund(enums.RefundStatusSucceeded.String())
		return &RefundOutcome{Refund: refund, NewIntentStatus: intent.Status}, nil

	case enums.RefundStatusPending:
		refund.Status = enums.RefundStatusPending
		if err := s.persistPendingRefund(ctx, intent, refund); err != nil {
			return nil, err
		}
		return &RefundOutcome{Refund: refund, NewIntentStatus: intent.Status}, nil

	case enums.RefundStatusPendingManual:
		refund.Status = enums.RefundStatusPendingManual
		if err := s.persistPendingRefund(ctx, intent, refund); err != nil {
			return nil, err
		}
		return &RefundOutcome{Refund: refund, NewIntentStatus: intent.Status, IsPendingManual: true}, nil

	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "adapter returned unsupported refund status "+result.Status.String())
	}
}

// FinalizeRefund settles a PENDING refund once the provider confirms, writing
// the refund status, the intent counters and the ledger reversal atomically.
// Already-settled refunds are a no-op.
func (s *Service) FinalizeRefund(ctx context.Context, refundID uuid.UUID) (*RefundOutcome, error) {
	refund, err := s.repo.FindRefundByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if refund.Status == enums.RefundStatusSucceeded {
		intent, err := s.repo.FindIntentByID(ctx, refund.IntentID)
		if err != nil {
			return nil, err
		}
		return &RefundOutcome{Refund: refund, NewIntentStatus: intent.Status}, nil
	}
	if refund.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeRefundInvalidStatus, "refund already terminal").
			WithDetails(map[string]any{"status": refund.Status})
	}

	intent, err := s.repo.FindIntentByID(ctx, refund.IntentID)
	if err != nil {
		return nil, err
	}
	if err := fsm.AssertRefundInvariant(intent.Amount, intent.RefundedAmount, refund.Amount); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.settleRefundTx(ctx, tx, intent, refund)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncRefund(enums.RefundStatusSucceeded.String())
	return &RefundOutcome{Refund: refund, NewIntentStatus: intent.Status}, nil
}

// settleRefundTx performs the atomic refund settlement inside tx: refund row
// to SUCCEEDED, intent counters and status via compare-and-swap, the ledger
// reversal, the audit event and the outbox entry.
func (s *Service) settleRefundTx(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent, refund *models.Refund) error {
	repo := s.repo.WithTx(tx)
	ledgerRepo := s.ledger.WithTx(tx)

	refund.Status = enums.RefundStatusSucceeded
	if err := repo.UpdateRefund(ctx, refund); err != nil {
		return err
	}

	txn, err := ledger.BuildRefundSettled(intent, refund)
	if err != nil {
		return err
	}
	if err := ledgerRepo.Create(ctx, txn); err != nil {
		return err
	}

	oldStatus := intent.Status
	refundedTotal := intent.RefundedAmount + refund.Amount
	newStatus := fsm.NextRefundStatus(intent.Amount, refundedTotal)
	updates := map[string]any{
		"refunded_amount": refundedTotal,
		"refund_count":    intent.RefundCount + 1,
	}
	if err := repo.TransitionIntent(ctx, intent, newStatus, updates); err != nil {
		return err
	}
	intent.RefundedAmount = refundedTotal
	intent.RefundCount++

	event := s.internalEvent(intent, oldStatus, newStatus, models.PaymentEventOutcomeApplied)
	if err := repo.CreateEvent(ctx, event); err != nil {
		return err
	}

	settledAt := s.now()
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventTypeRefundSucceeded,
		AggregateType: enums.OutboxAggregateTypeRefund,
		AggregateID:   refund.ID,
		Actor:         s.refundActor(refund, intent),
		Data: map[string]any{
			"refund_id":  refund.ID,
			"intent_id":  intent.ID,
			"store_id":   intent.StoreID,
			"amount":     refund.Amount,
			"fee_amount": refund.FeeAmount,
			"is_full":    refund.IsFull,
			"settled_at": settledAt,
		},
		Version: 1,
	})
}

func (s *Service) persistPendingRefund(ctx context.Context, intent *models.PaymentIntent, refund *models.Refund) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.createRefundTx(ctx, tx, refund); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeRefundPending,
			AggregateType: enums.OutboxAggregateTypeRefund,
			AggregateID:   refund.ID,
			Actor:         s.refundActor(refund, intent),
			Data: map[string]any{
				"refund_id": refund.ID,
				"intent_id": intent.ID,
				"store_id":  intent.StoreID,
				"amount":    refund.Amount,
				"status":    refund.Status,
				"reason":    refund.Reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}
	s.metrics.IncRefund(refund.Status.String())
	return nil
}

// createRefundTx inserts the refund unless it already exists, updating in
// place when re-executing an approved or retried refund.
func (s *Service) createRefundTx(ctx context.Context, tx *gorm.DB, refund *models.Refund) error {
	repo := s.repo.WithTx(tx)
	existing, err := repo.FindRefundByIdempotencyKey(ctx, refund.IdempotencyKey)
	if err != nil {
		return err
	}
	if existing == nil {
		return repo.CreateRefund(ctx, refund)
	}
	refund.ID = existing.ID
	refund.CreatedAt = existing.CreatedAt
	return repo.UpdateRefund(ctx, refund)
}

func (s *Service) saveRefund(ctx context.Context, refund *models.Refund) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.createRefundTx(ctx, tx, refund)
	})
}

// SyncIntentStatus reconciles one intent against the provider's source of
// truth. The queried status is applied under the same dedupe and FSM rules as
// a webhook.
func (s *Service) SyncIntentStatus(ctx context.Context, intentID uuid.UUID) (*WebhookResult, error) {
	intent, err := s.repo.FindIntentByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.ProviderIntentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent has no provider reference")
	}
	adapter, err := s.registry.Adapter(intent.Provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	started := s.now()
	result, callErr := adapter.QueryStatus(callCtx, *intent.ProviderIntentID)
	s.metrics.ObserveProviderCall(intent.Provider.String(), "query_status", time.Since(started))
	if callErr != nil {
		s.noteProviderError(intent.Provider)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, callErr, "provider status query failed")
	}
	s.noteProviderSuccess(intent.Provider)

	if result.NormalizedStatus == intent.Status {
		return &WebhookResult{Outcome: models.PaymentEventOutcomeDeduped, IntentID: intent.ID, Status: intent.Status}, nil
	}
	if !fsm.IsValidTransition(intent.Status, result.NormalizedStatus) {
		s.logWarn(s.logCtx(ctx, intent), "reconciliation found stale provider status, ignored")
		return &WebhookResult{Outcome: models.PaymentEventOutcomeOutOfOrder, IntentID: intent.ID, Status: intent.Status}, nil
	}
	if isRefundStatus(result.NormalizedStatus) {
		refund, err := s.oldestPendingRefund(ctx, s.repo, intent.ID)
		if err != nil {
			return nil, err
		}
		if refund == nil {
			s.logWarn(s.logCtx(ctx, intent), "provider reports refund with no local refund record, ignored")
			return &WebhookResult{Outcome: models.PaymentEventOutcomeOrphan, IntentID: intent.ID, Status: intent.Status}, nil
		}
	}

	event := &providers.WebhookEvent{
		ProviderEventID:  fmt.Sprintf("sync:%s:%d", intent.ID, s.now().UnixNano()),
		ProviderIntentID: *intent.ProviderIntentID,
		RawStatus:        result.RawStatus,
		NormalizedStatus: result.NormalizedStatus,
		Amount:           intent.Amount,
		Currency:         intent.Currency,
		OccurredAt:       result.OccurredAt,
	}
	eventKey := idempotency.InternalEventKey(intent.ID, result.NormalizedStatus, s.now().UnixNano())
	if err := s.applyTransition(ctx, intent, event, eventKey, []byte(result.RawStatus)); err != nil {
		return nil, err
	}
	return &WebhookResult{Outcome: models.PaymentEventOutcomeApplied, IntentID: intent.ID, Status: intent.Status}, nil
}

// GetIntent loads one intent with its audit trail.
func (s *Service) GetIntent(ctx context.Context, intentID uuid.UUID) (*models.PaymentIntent, []models.PaymentEvent, error) {
	intent, err := s.repo.FindIntentByID(ctx, intentID)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.repo.ListEventsByIntent(ctx, intentID)
	if err != nil {
		return nil, nil, err
	}
	return intent, events, nil
}

func (s *Service) internalEvent(intent *models.PaymentIntent, oldStatus, newStatus enums.PaymentStatus, outcome models.PaymentEventOutcome) *models.PaymentEvent {
	key := idempotency.InternalEventKey(intent.ID, newStatus, s.now().UnixNano())
	return &models.PaymentEvent{
		IntentID:       intent.ID,
		IdempotencyKey: key,
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
		Outcome:        outcome,
		Checksum:       checksum([]byte(key)),
	}
}

func (s *Service) refundActor(refund *models.Refund, intent *models.PaymentIntent) *outbox.ActorRef {
	if refund.OperatorID == uuid.Nil {
		return nil
	}
	operatorID := refund.OperatorID
	storeID := intent.StoreID
	return &outbox.ActorRef{OperatorID: &operatorID, StoreID: &storeID, Role: "operator"}
}

func (s *Service) paymentPaidPayload(intent *models.PaymentIntent, fee int64, paidAt time.Time) map[string]any {
	return map[string]any{
		"intent_id":  intent.ID,
		"store_id":   intent.StoreID,
		"order_id":   intent.OrderID,
		"amount":     intent.Amount,
		"fee_amount": fee,
		"currency":   intent.Currency,
		"provider":   intent.Provider,
		"paid_at":    paidAt,
	}
}

func (s *Service) paymentFailedPayload(intent *models.PaymentIntent, reason string) map[string]any {
	return map[string]any{
		"intent_id": intent.ID,
		"store_id":  intent.StoreID,
		"order_id":  intent.OrderID,
		"amount":    intent.Amount,
		"currency":  intent.Currency,
		"provider":  intent.Provider,
		"reason":    reason,
	}
}

func (s *Service) paymentCanceledPayload(intent *models.PaymentIntent, canceledAt time.Time) map[string]any {
	return map[string]any{
		"intent_id":   intent.ID,
		"store_id":    intent.StoreID,
		"order_id":    intent.OrderID,
		"canceled_at": canceledAt,
	}
}

func (s *Service) logCtx(ctx context.Context, intent *models.PaymentIntent) context.Context {
	if s.logg == nil || intent == nil {
		return ctx
	}
	logCtx := s.logg.WithIntentID(ctx, intent.ID.String())
	logCtx = s.logg.WithStoreID(logCtx, intent.StoreID.String())
	return s.logg.WithProvider(logCtx, intent.Provider.String())
}

func (s *Service) logInfo(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
