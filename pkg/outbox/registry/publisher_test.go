package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/config"
	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
	"github.com/cokeastorga/paylane/pkg/outbox"
	"github.com/cokeastorga/paylane/pkg/outbox/payloads"
)

func testTopics() config.PubSubConfig {
	return config.PubSubConfig{
		PaymentsTopic: "payment-events",
		RefundsTopic:  "refund-events",
		PayoutsTopic:  "payout-events",
	}
}

func envelopeBytes(t *testing.T, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	cfg := testTopics()
	cfg.RefundsTopic = ""
	if _, err := NewEventRegistry(cfg); err == nil {
		t.Fatal("expected error for missing refunds topic")
	}
}

func TestResolveRoutesEventToConfiguredTopic(t *testing.T) {
	reg, err := NewEventRegistry(testTopics())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	intentID := uuid.New()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.OutboxEventTypePaymentPaid,
		AggregateType: enums.OutboxAggregateTypePaymentIntent,
		AggregateID:   intentID,
		Payload: envelopeBytes(t, payloads.PaymentPaidEvent{
			IntentID: intentID,
			StoreID:  uuid.New(),
			Amount:   14990,
			Currency: enums.CurrencyCLP,
			Provider: enums.ProviderWebpay,
		}),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "payment-events" {
		t.Fatalf("expected payment-events topic, got %s", resolved.Descriptor.Topic)
	}
	paid, ok := resolved.Payload.(*payloads.PaymentPaidEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if paid.IntentID != intentID {
		t.Fatalf("expected intent %s, got %s", intentID, paid.IntentID)
	}
	if resolved.Envelope.Version != 1 {
		t.Fatalf("expected envelope version 1, got %d", resolved.Envelope.Version)
	}
}

func TestResolveRejectsUnsupportedEventType(t *testing.T) {
	reg, err := NewEventRegistry(testTopics())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventType("store.created"),
		AggregateType: enums.OutboxAggregateTypePaymentIntent,
		AggregateID:   uuid.New(),
	})
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsAggregateMismatch(t *testing.T) {
	reg, err := NewEventRegistry(testTopics())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventTypePayoutRequested,
		AggregateType: enums.OutboxAggregateTypeRefund,
		AggregateID:   uuid.New(),
		Payload:       envelopeBytes(t, payloads.PayoutRequestedEvent{PayoutID: uuid.New()}),
	})
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsEmptyPayloadData(t *testing.T) {
	reg, err := NewEventRegistry(testTopics())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage("null"),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventTypeRefundSucceeded,
		AggregateType: enums.OutboxAggregateTypeRefund,
		AggregateID:   uuid.New(),
		Payload:       env,
	})
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}
