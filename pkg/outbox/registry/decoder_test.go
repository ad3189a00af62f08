package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/enums"
	"github.com/cokeastorga/paylane/pkg/outbox/payloads"
)

func TestDecoderRegistryDecodesRegisteredVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.OutboxEventTypePayoutFailed, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.PayoutFailedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})

	payoutID := uuid.New()
	raw, err := json.Marshal(payloads.PayoutFailedEvent{PayoutID: payoutID, Reason: "account closed"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := reg.Decode(enums.OutboxEventTypePayoutFailed, 1, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	event, ok := decoded.(*payloads.PayoutFailedEvent)
	if !ok {
		t.Fatalf("unexpected type %T", decoded)
	}
	if event.PayoutID != payoutID {
		t.Fatalf("expected payout %s, got %s", payoutID, event.PayoutID)
	}
}

func TestDecoderRegistryRejectsUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.OutboxEventTypePayoutFailed, 1, func(payload json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	if _, err := reg.Decode(enums.OutboxEventTypePayoutFailed, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unregistered version")
	}
}
