// Package sandbox implements an in-memory PSP adapter used in development and
// tests. It honors the full adapter contract, including signature checking on
// webhooks, without any network calls.
package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/internal/providers"
	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Sandbox-Signature"

// Adapter is a deterministic fake PSP.
type Adapter struct {
	provider enums.Provider
	secret   []byte
}

// New builds a sandbox adapter that answers for the given provider slot.
func New(provider enums.Provider, secret string) *Adapter {
	return &Adapter{provider: provider, secret: []byte(secret)}
}

func (a *Adapter) Provider() enums.Provider { return a.provider }

func (a *Adapter) CreatePayment(ctx context.Context, intent *models.PaymentIntent) (*providers.CreatePaymentResult, error) {
	url := fmt.Sprintf("https://sandbox.local/%s/pay/%s", a.provider, intent.ID)
	expires := time.Now().Add(30 * time.Minute)
	return &providers.CreatePaymentResult{
		ProviderIntentID: "sbx_" + uuid.NewString(),
		ClientURL:        &url,
		ExpiresAt:        &expires,
	}, nil
}

type webhookPayload struct {
	EventID    string            `json:"event_id"`
	IntentID   string            `json:"intent_id"`
	Status     string            `json:"status"`
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sign computes the signature the sandbox expects on a webhook body. Exposed
// so tests and the local webhook simulator can produce valid callbacks.
func (a *Adapter) Sign(body []byte) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *Adapter) ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*providers.WebhookEvent, error) {
	signature := headers[SignatureHeader]
	if signature == "" || !hmac.Equal([]byte(signature), []byte(a.Sign(rawBody))) {
		return nil, pkgerrors.New(pkgerrors.CodeWebhookSignatureInvalid, "sandbox webhook signature mismatch")
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed sandbox webhook payload")
	}
	normalized, err := a.NormalizeStatus(payload.Status)
	if err != nil {
		return nil, err
	}
	return &providers.WebhookEvent{
		ProviderEventID:  payload.EventID,
		ProviderIntentID: payload.IntentID,
		RawStatus:        payload.Status,
		NormalizedStatus: normalized,
		Amount:           payload.Amount,
		Currency:         enums.Currency(payload.Currency),
		Metadata:         payload.Metadata,
		OccurredAt:       payload.OccurredAt,
	}, nil
}

func (a *Adapter) NormalizeStatus(providerRawStatus string) (enums.PaymentStatus, error) {
	switch providerRawStatus {
	case "created", "initialized":
		return enums.PaymentStatusCreated, nil
	case "pending", "in_process":
		return enums.PaymentStatusPending, nil
	case "authorized":
		return enums.PaymentStatusAuthorized, nil
	case "approved", "paid":
		return enums.PaymentStatusPaid, nil
	case "rejected", "failed":
		return enums.PaymentStatusFailed, nil
	case "canceled", "expired":
		return enums.PaymentStatusCanceled, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown sandbox status "+providerRawStatus)
	}
}

func (a *Adapter) Refund(ctx context.Context, params providers.RefundParams) (*providers.RefundResult, error) {
	refundID := "sbxr_" + uuid.NewString()
	return &providers.RefundResult{
		ProviderRefundID: &refundID,
		Status:           enums.RefundStatusSucceeded,
	}, nil
}

func (a *Adapter) QueryStatus(ctx context.Context, providerIntentID string) (*providers.StatusResult, error) {
	return &providers.StatusResult{
		RawStatus:        "approved",
		NormalizedStatus: enums.PaymentStatusPaid,
		OccurredAt:       time.Now(),
	}, nil
}

func (a *Adapter) QueryRefundStatus(ctx context.Context, providerRefundID string) (*providers.RefundResult, error) {
	return &providers.RefundResult{
		ProviderRefundID: &providerRefundID,
		Status:           enums.RefundStatusSucceeded,
	}, nil
}
