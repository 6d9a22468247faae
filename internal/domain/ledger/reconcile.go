package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NoteUpdate records a payment note rewritten by reconciliation
type NoteUpdate struct {
	PaymentID uuid.UUID `json:"payment_id"`
	Previous  string    `json:"previous"`
	Note      string    `json:"note"`
}

// ReconcileResult is the outcome of reconciling one transaction snapshot
type ReconcileResult struct {
	Transaction Transaction
	NoteUpdates []NoteUpdate
	PaidAmount  decimal.Decimal
	// Overpaid is set when payments exceed the total; the status is still PAID
	Overpaid bool
}

// DeriveStatus maps a total and a paid amount to a payment status.
// paid == 0 is checked first, so a zero-total transaction with no payments is PENDING.
func DeriveStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsZero():
		return PaymentStatusPending
	case paid.LessThan(total):
		return PaymentStatusPartial
	default:
		return PaymentStatusPaid
	}
}

// Reconcile derives the status of tx from its total and payments and rewrites every
// payment note to match. The input is left untouched; the updated copy is returned
// along with the notes that changed. Voided transactions are returned unchanged.
//
// Callers must hold exclusive access to the transaction from reconcile through persist.
func Reconcile(tx Transaction) ReconcileResult {
	out := tx.Clone()
	paid := out.PaidAmount()

	if out.IsVoided() {
		return ReconcileResult{Transaction: out, PaidAmount: paid}
	}

	status := DeriveStatus(out.TotalAmount, paid)
	out.Status = status

	note := status.Note()
	var updates []NoteUpdate
	for i := range out.Payments {
		if out.Payments[i].Note == note {
			continue
		}
		updates = append(updates, NoteUpdate{
			PaymentID: out.Payments[i].ID,
			Previous:  out.Payments[i].Note,
			Note:      note,
		})
		out.Payments[i].Note = note
	}

	return ReconcileResult{
		Transaction: out,
		NoteUpdates: updates,
		PaidAmount:  paid,
		Overpaid:    paid.GreaterThan(out.TotalAmount),
	}
}

// StatusOverride is the outcome of an explicit status change
type StatusOverride struct {
	Transaction Transaction
	Previous    PaymentStatus
	Event       *TransactionStatusChangedEvent
}

// ApplyStatusOverride sets a status directly, bypassing reconciliation.
// raw must name one of the permitted statuses; anything else is rejected and tx is not touched.
// Payment notes are left as they are: they describe the last reconciliation, so a voided
// transaction can still carry "Payment completed". Reconcile skips voided transactions, so
// notes change again only after an override out of VOID and the next reconciliation.
func ApplyStatusOverride(tx Transaction, raw string) (StatusOverride, error) {
	status, err := ParsePaymentStatus(raw)
	if err != nil {
		return StatusOverride{}, err
	}

	out := tx.Clone()
	previous := out.Status
	out.Status = status

	return StatusOverride{
		Transaction: out,
		Previous:    previous,
		Event:       NewTransactionStatusChangedEvent(&out, previous),
	}, nil
}
