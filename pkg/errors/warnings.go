package errors

import (
	stdErrors "errors"
	"fmt"
)

// WarningCode labels recoverable provider conditions. Unlike an Error code, a
// warning never fails the caller; orchestrators translate it into a degraded
// but successful outcome.
type WarningCode string

const (
	WarnRefundWindowExpired   WarningCode = "REFUND_WINDOW_EXPIRED"
	WarnRefundNotYetSettled   WarningCode = "REFUND_NOT_YET_SETTLED"
	WarnProviderManualProcess WarningCode = "PROVIDER_MANUAL_PROCESS"
)

// Warning is raised by provider adapters for soft conditions such as a
// provider-specific refund time window having closed.
type Warning struct {
	code    WarningCode
	message string
}

func NewWarning(code WarningCode, message string) *Warning {
	return &Warning{code: code, message: message}
}

func (w *Warning) Code() WarningCode {
	if w == nil {
		return ""
	}
	return w.code
}

func (w *Warning) Error() string {
	if w == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", w.code, w.message)
}

// AsWarning extracts a Warning from an error chain, or nil.
func AsWarning(err error) *Warning {
	if err == nil {
		return nil
	}
	var typed *Warning
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
