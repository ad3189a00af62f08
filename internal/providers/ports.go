// Package providers holds the PSP adapter contract, the adapter registry and
// the routing rules that pick a provider for a new intent. Concrete
// production adapters live outside this repository; the engine only ever sees
// the normalized vocabulary defined here.
package providers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
)

// CreatePaymentResult is the normalized outcome of initializing a charge.
type CreatePaymentResult struct {
	ProviderIntentID string
	ClientURL        *string
	ClientSecret     *string
	ExpiresAt        *time.Time
}

// WebhookEvent is a verified, normalized provider callback.
type WebhookEvent struct {
	ProviderEventID  string
	ProviderIntentID string
	RawStatus        string
	NormalizedStatus enums.PaymentStatus
	Amount           int64
	Currency         enums.Currency
	Metadata         map[string]string
	OccurredAt       time.Time
}

// RefundParams describes a refund request to the provider.
type RefundParams struct {
	ProviderIntentID string
	ProviderRefundID string
	IntentID         uuid.UUID
	Amount           int64
	Currency         enums.Currency
	Reason           string
}

// RefundResult is the normalized refund outcome. Adapters never return a bare
// "failed" result; hard failures are raised as typed errors, soft cases as
// typed warnings the orchestrator downgrades to manual handling.
type RefundResult struct {
	ProviderRefundID *string
	Status           enums.RefundStatus
	IsAsync          bool
}

// StatusResult is the provider's source-of-truth view used by reconciliation.
type StatusResult struct {
	RawStatus        string
	NormalizedStatus enums.PaymentStatus
	OccurredAt       time.Time
}

// Adapter is implemented once per supported PSP.
type Adapter interface {
	Provider() enums.Provider

	// CreatePayment initializes the charge at the PSP.
	CreatePayment(ctx context.Context, intent *models.PaymentIntent) (*CreatePaymentResult, error)

	// ParseWebhook verifies the signature and normalizes the payload. It must
	// return a WEBHOOK_SIGNATURE_INVALID error rather than a parsed-but-
	// unverified event.
	ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*WebhookEvent, error)

	// NormalizeStatus maps a provider raw status to the internal vocabulary.
	// Pure, no I/O.
	NormalizeStatus(providerRawStatus string) (enums.PaymentStatus, error)

	// Refund executes a refund at the PSP.
	Refund(ctx context.Context, params RefundParams) (*RefundResult, error)

	// QueryStatus and QueryRefundStatus back periodic reconciliation.
	QueryStatus(ctx context.Context, providerIntentID string) (*StatusResult, error)
	QueryRefundStatus(ctx context.Context, providerRefundID string) (*RefundResult, error)
}
