package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest},
		{code: CodeIntentAlreadyPaid, status: http.StatusConflict},
		{code: CodeIdempotencyConflict, status: http.StatusConflict},
		{code: CodeOptimisticLockConflict, status: http.StatusConflict, retryable: true},
		{code: CodeNoProviderAvailable, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeProviderCircuitOpen, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeProviderInitFailed, status: http.StatusBadGateway, retryable: true},
		{code: CodeRefundInvalidStatus, status: http.StatusUnprocessableEntity},
		{code: CodeRefundExceedsDailyLimit, status: http.StatusTooManyRequests},
		{code: CodePayoutExceedsDailyLimit, status: http.StatusTooManyRequests},
		{code: CodeInsufficientBalance, status: http.StatusUnprocessableEntity},
		{code: CodeBankAccountNotVerified, status: http.StatusUnprocessableEntity},
		{code: CodeStoreSuspended, status: http.StatusForbidden},
		{code: CodeReadOnlyModeEnabled, status: http.StatusForbidden},
		{code: CodeWebhookSignatureInvalid, status: http.StatusUnauthorized},
		{code: CodeLedgerImbalance, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeRefundInvalidStatus, "not refundable")
	if base.Code() != CodeRefundInvalidStatus {
		t.Fatalf("unexpected code %s", base.Code())
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeProviderInitFailed, cause, "charge init")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !Is(wrapped, CodeProviderInitFailed) {
		t.Fatalf("Is should match the wrapped code")
	}
	if Is(wrapped, CodeInternal) {
		t.Fatalf("Is should not match another code")
	}
}

func TestWarningRoundtrip(t *testing.T) {
	warn := NewWarning(WarnRefundWindowExpired, "past 90 day window")
	if AsWarning(warn) == nil {
		t.Fatalf("expected warning to round-trip")
	}
	if AsWarning(warn).Code() != WarnRefundWindowExpired {
		t.Fatalf("unexpected warning code %s", AsWarning(warn).Code())
	}
	if AsWarning(stdErrors.New("plain")) != nil {
		t.Fatalf("plain error should not be a warning")
	}
}
