package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// balanceTolerance is the maximum acceptable deviation from zero, in minor
// units, when validating a transaction.
var balanceTolerance = decimal.NewFromFloat(0.001)

// BuildCapture records a successful charge of the intent's full amount.
// Canonical three-entry pattern: debit funds-in-transit by the amount, credit
// the merchant's payable balance by amount minus fee, credit the platform
// commission account by the fee. Pass fee=0 for marketplace pass-through.
func BuildCapture(intent *models.PaymentIntent, fee int64) (*models.LedgerTransaction, error) {
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "intent required")
	}
	if fee < 0 || fee > intent.Amount {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission fee out of range").
			WithDetails(map[string]any{"fee": fee, "amount": intent.Amount})
	}

	txn := newTransaction(intent.StoreID, intent.ID, intent.OrderSource,
		enums.LedgerTransactionTypePaymentCaptured,
		fmt.Sprintf("capture of intent %s", intent.ID))

	addEntry(txn, enums.LedgerAccountFundsInTransit, intent.Amount, enums.LedgerEntryTypeDebit, intent.Currency)
	addEntry(txn, enums.LedgerAccountPayableBalance, -(intent.Amount - fee), enums.LedgerEntryTypeCredit, intent.Currency)
	if fee != 0 {
		addEntry(txn, enums.LedgerAccountPlatformCommission, -fee, enums.LedgerEntryTypeCredit, intent.Currency)
	}

	return txn, validate(txn)
}

// BuildRefundSettled reverses a capture proportionally: the merchant balance
// gives back the net portion, the commission account gives back its share, and
// funds-in-transit receives the full refund.
func BuildRefundSettled(intent *models.PaymentIntent, refund *models.Refund) (*models.LedgerTransaction, error) {
	if intent == nil || refund == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "intent and refund required")
	}
	if refund.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refund amount must be positive")
	}
	if refund.FeeAmount < 0 || refund.FeeAmount > refund.Amount {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refund fee portion out of range")
	}

	txn := newTransaction(intent.StoreID, refund.ID, intent.OrderSource,
		enums.LedgerTransactionTypeRefundSettled,
		fmt.Sprintf("refund %s against intent %s", refund.ID, intent.ID))

	addEntry(txn, enums.LedgerAccountPayableBalance, refund.Amount-refund.FeeAmount, enums.LedgerEntryTypeDebit, intent.Currency)
	if refund.FeeAmount != 0 {
		addEntry(txn, enums.LedgerAccountPlatformCommission, refund.FeeAmount, enums.LedgerEntryTypeDebit, intent.Currency)
	}
	addEntry(txn, enums.LedgerAccountFundsInTransit, -refund.Amount, enums.LedgerEntryTypeCredit, intent.Currency)

	return txn, validate(txn)
}

// BuildPayoutRequested moves the requested amount from the merchant's payable
// balance into the payout liability account.
func BuildPayoutRequested(payout *models.Payout) (*models.LedgerTransaction, error) {
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout required")
	}

	txn := newTransaction(payout.StoreID, payout.ID, enums.OrderSourceOwnStore,
		enums.LedgerTransactionTypePayoutRequested,
		fmt.Sprintf("payout %s requested", payout.ID))

	addEntry(txn, enums.LedgerAccountPayableBalance, payout.Amount, enums.LedgerEntryTypeDebit, payout.Currency)
	addEntry(txn, enums.LedgerAccountPayoutLiability, -payout.Amount, enums.LedgerEntryTypeCredit, payout.Currency)

	return txn, validate(txn)
}

// BuildPayoutProcessing is a zero-sum marker for audit visibility only; it
// moves no balance.
func BuildPayoutProcessing(payout *models.Payout) (*models.LedgerTransaction, error) {
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout required")
	}

	txn := newTransaction(payout.StoreID, payout.ID, enums.OrderSourceOwnStore,
		enums.LedgerTransactionTypePayoutProcessing,
		fmt.Sprintf("payout %s handed to bank rails", payout.ID))

	addEntry(txn, enums.LedgerAccountPayoutLiability, 0, enums.LedgerEntryTypeDebit, payout.Currency)
	addEntry(txn, enums.LedgerAccountPayoutLiability, 0, enums.LedgerEntryTypeCredit, payout.Currency)

	return txn, validate(txn)
}

// BuildPayoutSucceeded releases the liability once the bank confirms.
func BuildPayoutSucceeded(payout *models.Payout) (*models.LedgerTransaction, error) {
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout required")
	}

	txn := newTransaction(payout.StoreID, payout.ID, enums.OrderSourceOwnStore,
		enums.LedgerTransactionTypePayoutSucceeded,
		fmt.Sprintf("payout %s settled", payout.ID))

	addEntry(txn, enums.LedgerAccountPayoutLiability, payout.Amount, enums.LedgerEntryTypeDebit, payout.Currency)
	addEntry(txn, enums.LedgerAccountFundsInTransit, -payout.Amount, enums.LedgerEntryTypeCredit, payout.Currency)

	return txn, validate(txn)
}

// BuildPayoutFailed fully reverses the liability back into the merchant's
// payable balance.
func BuildPayoutFailed(payout *models.Payout) (*models.LedgerTransaction, error) {
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout required")
	}

	txn := newTransaction(payout.StoreID, payout.ID, enums.OrderSourceOwnStore,
		enums.LedgerTransactionTypePayoutFailed,
		fmt.Sprintf("payout %s failed, liability reversed", payout.ID))

	addEntry(txn, enums.LedgerAccountPayoutLiability, payout.Amount, enums.LedgerEntryTypeDebit, payout.Currency)
	addEntry(txn, enums.LedgerAccountPayableBalance, -payout.Amount, enums.LedgerEntryTypeCredit, payout.Currency)

	return txn, validate(txn)
}

func newTransaction(storeID, referenceID uuid.UUID, source enums.OrderSource, txnType enums.LedgerTransactionType, description string) *models.LedgerTransaction {
	return &models.LedgerTransaction{
		ID:          uuid.New(),
		StoreID:     storeID,
		ReferenceID: referenceID,
		OrderSource: source,
		Type:        txnType,
		Description: description,
	}
}

func addEntry(txn *models.LedgerTransaction, account enums.LedgerAccount, amount int64, entryType enums.LedgerEntryType, currency enums.Currency) {
	txn.Entries = append(txn.Entries, models.LedgerEntry{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		Account:       account,
		Amount:        amount,
		Type:          entryType,
		Currency:      currency,
	})
}

// validate is the accounting safety net: every built transaction must net to
// zero before anything is persisted. An imbalance is a programming error and
// fails synchronously.
func validate(txn *models.LedgerTransaction) error {
	sum := decimal.Zero
	for _, entry := range txn.Entries {
		sum = sum.Add(decimal.NewFromInt(entry.Amount))
	}
	if sum.Abs().GreaterThan(balanceTolerance) {
		return pkgerrors.New(pkgerrors.CodeLedgerImbalance, "ledger transaction does not balance").
			WithDetails(map[string]any{
				"transaction_id": txn.ID,
				"type":           txn.Type,
				"sum":            sum.String(),
			})
	}
	return nil
}
