package ledger

import (
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
)

// PaymentStatus is the payment-completion state of a transaction
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING" // Nothing paid yet
	PaymentStatusPartial PaymentStatus = "PARTIAL" // 0 < paid < total
	PaymentStatusPaid    PaymentStatus = "PAID"    // paid >= total
	PaymentStatusVoid    PaymentStatus = "VOID"    // Voided by explicit override, excluded from reconciliation
)

// AllPaymentStatuses lists every status an explicit override may set
var AllPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPartial,
	PaymentStatusPaid,
	PaymentStatusVoid,
}

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsVoid returns true for voided transactions
func (s PaymentStatus) IsVoid() bool {
	return s == PaymentStatusVoid
}

// CanApplyPayment returns true if payments may be attached or detached in this status
func (s PaymentStatus) CanApplyPayment() bool {
	return !s.IsVoid()
}

// Note returns the human-readable note written on every payment of a transaction in this status
func (s PaymentStatus) Note() string {
	switch s {
	case PaymentStatusPending:
		return "Awaiting payment"
	case PaymentStatusPartial:
		return "Partial payment received, balance outstanding"
	case PaymentStatusPaid:
		return "Payment completed"
	}
	return ""
}

// ParsePaymentStatus validates a caller-supplied status string against the fixed enumeration.
// Surrounding whitespace and letter case are ignored.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Invalid status %q: must be one of PENDING, PARTIAL, PAID, VOID", raw))
	}
	return status, nil
}

// TransactionKind distinguishes payables from receivables
type TransactionKind string

const (
	TransactionKindPurchase TransactionKind = "PURCHASE" // Owed to a supplier
	TransactionKindOrder    TransactionKind = "ORDER"    // Owed by a customer
)

// IsValid checks if the kind is valid
func (k TransactionKind) IsValid() bool {
	return k == TransactionKindPurchase || k == TransactionKindOrder
}

// String returns the string representation of TransactionKind
func (k TransactionKind) String() string {
	return string(k)
}

// ParseTransactionKind accepts PURCHASE/ORDER in any case
func ParseTransactionKind(raw string) (TransactionKind, error) {
	kind := TransactionKind(strings.ToUpper(strings.TrimSpace(raw)))
	if !kind.IsValid() {
		return "", shared.NewDomainError("INVALID_KIND",
			fmt.Sprintf("Invalid transaction kind %q: must be PURCHASE or ORDER", raw))
	}
	return kind, nil
}

// PaymentMethod is how a payment or receipt was settled
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodCheque, PaymentMethodOther:
		return true
	}
	return false
}
