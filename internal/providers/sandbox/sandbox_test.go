package sandbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

func TestParseWebhookVerifiesSignature(t *testing.T) {
	adapter := New(enums.ProviderWebpay, "test-secret")
	body, _ := json.Marshal(map[string]any{
		"event_id":    "evt_1",
		"intent_id":   "sbx_abc",
		"status":      "approved",
		"amount":      10000,
		"currency":    "CLP",
		"occurred_at": time.Now().UTC(),
	})

	event, err := adapter.ParseWebhook(context.Background(), body, map[string]string{
		SignatureHeader: adapter.Sign(body),
	})
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if event.NormalizedStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", event.NormalizedStatus)
	}
	if event.ProviderEventID != "evt_1" {
		t.Fatalf("unexpected event id %s", event.ProviderEventID)
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	adapter := New(enums.ProviderWebpay, "test-secret")
	body := []byte(`{"event_id":"evt_1","status":"approved"}`)

	_, err := adapter.ParseWebhook(context.Background(), body, map[string]string{
		SignatureHeader: "deadbeef",
	})
	if !pkgerrors.Is(err, pkgerrors.CodeWebhookSignatureInvalid) {
		t.Fatalf("expected WEBHOOK_SIGNATURE_INVALID, got %v", err)
	}

	_, err = adapter.ParseWebhook(context.Background(), body, map[string]string{})
	if !pkgerrors.Is(err, pkgerrors.CodeWebhookSignatureInvalid) {
		t.Fatalf("expected WEBHOOK_SIGNATURE_INVALID for missing header, got %v", err)
	}
}

func TestNormalizeStatus(t *testing.T) {
	adapter := New(enums.ProviderFlow, "s")
	cases := map[string]enums.PaymentStatus{
		"approved":   enums.PaymentStatusPaid,
		"in_process": enums.PaymentStatusPending,
		"rejected":   enums.PaymentStatusFailed,
		"expired":    enums.PaymentStatusCanceled,
	}
	for raw, want := range cases {
		got, err := adapter.NormalizeStatus(raw)
		if err != nil {
			t.Fatalf("NormalizeStatus(%s): %v", raw, err)
		}
		if got != want {
			t.Fatalf("NormalizeStatus(%s) = %s, want %s", raw, got, want)
		}
	}
	if _, err := adapter.NormalizeStatus("weird"); err == nil {
		t.Fatal("unknown raw status must fail")
	}
}
