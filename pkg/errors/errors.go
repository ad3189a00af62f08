package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodeRateLimited  Code = "RATE_LIMITED"

	CodeIntentAlreadyPaid       Code = "INTENT_ALREADY_PAID"
	CodeIdempotencyConflict     Code = "IDEMPOTENCY_CONFLICT"
	CodeOptimisticLockConflict  Code = "OPTIMISTIC_LOCK_CONFLICT"
	CodeNoProviderAvailable     Code = "NO_PROVIDER_AVAILABLE"
	CodeProviderCircuitOpen     Code = "PROVIDER_CIRCUIT_OPEN"
	CodeProviderDisabled        Code = "PROVIDER_DISABLED"
	CodeProviderInitFailed      Code = "PROVIDER_INIT_FAILED"
	CodeRefundInvalidStatus     Code = "REFUND_INVALID_STATUS"
	CodeRefundProviderFailed    Code = "REFUND_PROVIDER_FAILED"
	CodeRefundExceedsDailyLimit Code = "REFUND_EXCEEDS_DAILY_LIMIT"
	CodePayoutExceedsDailyLimit Code = "PAYOUT_EXCEEDS_DAILY_LIMIT"
	CodeInsufficientBalance     Code = "INSUFFICIENT_BALANCE"
	CodeBankAccountNotVerified  Code = "BANK_ACCOUNT_NOT_VERIFIED"
	CodeStoreSuspended          Code = "STORE_SUSPENDED"
	CodeReadOnlyModeEnabled     Code = "READ_ONLY_MODE_ENABLED"
	CodeWebhookSignatureInvalid Code = "WEBHOOK_SIGNATURE_INVALID"
	CodeLedgerImbalance         Code = "LEDGER_IMBALANCE"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "insufficient permissions",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeRateLimited: {
		HTTPStatus:     http.StatusTooManyRequests,
		Retryable:      true,
		PublicMessage:  "too many requests",
		DetailsAllowed: true,
	},
	CodeIntentAlreadyPaid: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "order already settled",
	},
	CodeIdempotencyConflict: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeOptimisticLockConflict: {
		HTTPStatus:    http.StatusConflict,
		Retryable:     true,
		PublicMessage: "concurrent update detected, retry",
	},
	CodeNoProviderAvailable: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "no payment provider available",
		DetailsAllowed: true,
	},
	CodeProviderCircuitOpen: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "payment provider temporarily unavailable",
	},
	CodeProviderDisabled: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "payment provider disabled",
	},
	CodeProviderInitFailed: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "payment provider rejected the charge",
		DetailsAllowed: true,
	},
	CodeRefundInvalidStatus: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "payment is not refundable in its current status",
		DetailsAllowed: true,
	},
	CodeRefundProviderFailed: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "provider refused the refund",
		DetailsAllowed: true,
	},
	CodeRefundExceedsDailyLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		PublicMessage: "daily refund limit exceeded",
	},
	CodePayoutExceedsDailyLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		PublicMessage: "daily payout limit exceeded",
	},
	CodeInsufficientBalance: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "insufficient payoutable balance",
		DetailsAllowed: true,
	},
	CodeBankAccountNotVerified: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "bank account not verified",
	},
	CodeStoreSuspended: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "store suspended",
	},
	CodeReadOnlyModeEnabled: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "store is in read-only mode",
	},
	CodeWebhookSignatureInvalid: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "webhook signature invalid",
	},
	CodeLedgerImbalance: {
		HTTPStatus:     http.StatusInternalServerError,
		PublicMessage:  "internal accounting error",
		DetailsAllowed: false,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
