package enums

import "fmt"

// LedgerTransactionType tags the financial event a ledger transaction records.
type LedgerTransactionType string

const (
	LedgerTransactionTypePaymentCaptured  LedgerTransactionType = "payment_captured"
	LedgerTransactionTypeRefundSettled    LedgerTransactionType = "refund_settled"
	LedgerTransactionTypePayoutRequested  LedgerTransactionType = "payout_requested"
	LedgerTransactionTypePayoutProcessing LedgerTransactionType = "payout_processing"
	LedgerTransactionTypePayoutSucceeded  LedgerTransactionType = "payout_succeeded"
	LedgerTransactionTypePayoutFailed     LedgerTransactionType = "payout_failed"
)

var validLedgerTransactionTypes = []LedgerTransactionType{
	LedgerTransactionTypePaymentCaptured,
	LedgerTransactionTypeRefundSettled,
	LedgerTransactionTypePayoutRequested,
	LedgerTransactionTypePayoutProcessing,
	LedgerTransactionTypePayoutSucceeded,
	LedgerTransactionTypePayoutFailed,
}

// IsValid reports whether the value matches the canonical ledger transaction enum.
func (t LedgerTransactionType) IsValid() bool {
	for _, candidate := range validLedgerTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerTransactionType converts raw input into LedgerTransactionType.
func ParseLedgerTransactionType(value string) (LedgerTransactionType, error) {
	for _, candidate := range validLedgerTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger transaction type %q", value)
}

// LedgerAccount names one of the internal double-entry accounts.
type LedgerAccount string

const (
	LedgerAccountFundsInTransit     LedgerAccount = "funds_in_transit"
	LedgerAccountPayableBalance     LedgerAccount = "payable_balance"
	LedgerAccountPlatformCommission LedgerAccount = "platform_commission"
	LedgerAccountPayoutLiability    LedgerAccount = "payout_liability"
)

var validLedgerAccounts = []LedgerAccount{
	LedgerAccountFundsInTransit,
	LedgerAccountPayableBalance,
	LedgerAccountPlatformCommission,
	LedgerAccountPayoutLiability,
}

// IsValid reports whether the account is recognized.
func (a LedgerAccount) IsValid() bool {
	for _, candidate := range validLedgerAccounts {
		if candidate == a {
			return true
		}
	}
	return false
}

// LedgerEntryType distinguishes debits from credits.
type LedgerEntryType string

const (
	LedgerEntryTypeDebit  LedgerEntryType = "debit"
	LedgerEntryTypeCredit LedgerEntryType = "credit"
)

// IsValid reports whether the entry type is recognized.
func (t LedgerEntryType) IsValid() bool {
	return t == LedgerEntryTypeDebit || t == LedgerEntryTypeCredit
}
