package enums

import "fmt"

// RefundStatus tracks the lifecycle of a refund request.
type RefundStatus string

const (
	RefundStatusPendingApproval RefundStatus = "pending_approval"
	RefundStatusPending         RefundStatus = "pending"
	RefundStatusPendingManual   RefundStatus = "pending_manual"
	RefundStatusSucceeded       RefundStatus = "succeeded"
	RefundStatusFailed          RefundStatus = "failed"
	RefundStatusCanceled        RefundStatus = "canceled"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusPendingApproval,
	RefundStatusPending,
	RefundStatusPendingManual,
	RefundStatusSucceeded,
	RefundStatusFailed,
	RefundStatusCanceled,
}

// String implements fmt.Stringer.
func (r RefundStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundStatus.
func (r RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the refund can no longer change status.
func (r RefundStatus) IsTerminal() bool {
	return r == RefundStatusSucceeded || r == RefundStatusFailed || r == RefundStatusCanceled
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}
