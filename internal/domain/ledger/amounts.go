package ledger

import "github.com/shopspring/decimal"

// Rounding scales. Tax is kept at four fractional digits and only the
// final total is rounded to cents.
const (
	TaxScale    int32 = 4
	AmountScale int32 = 2
)

// InputScale is the most fractional digits a stored price, rate or payment amount can carry
const InputScale int32 = 4

// FitsInputScale reports whether d has no significant digits past InputScale.
// Trailing zeros do not count, so 1.50000 fits.
func FitsInputScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(InputScale))
}

// Amounts holds the computed figures of one priced transaction line
type Amounts struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ComputeAmounts computes tax and total for quantity × unitPrice at taxRatePercent.
//
// A missing quantity or unit price yields zero amounts rather than an error, so draft
// records can exist before pricing is final. A missing or non-positive tax rate means
// no tax. Rounding is half-up: tax to TaxScale digits first, then subtotal+tax to
// AmountScale digits.
func ComputeAmounts(quantity *int64, unitPrice *decimal.Decimal, taxRatePercent *decimal.Decimal) Amounts {
	if quantity == nil || unitPrice == nil {
		return Amounts{
			Subtotal:    decimal.Zero,
			TaxAmount:   decimal.Zero,
			TotalAmount: decimal.Zero,
		}
	}

	subtotal := unitPrice.Mul(decimal.NewFromInt(*quantity))

	taxAmount := decimal.Zero
	if taxRatePercent != nil && taxRatePercent.IsPositive() {
		// percent to fraction is an exact shift of two decimal places
		taxAmount = roundHalfUp(subtotal.Mul(*taxRatePercent).Shift(-2), TaxScale)
	}

	return Amounts{
		Subtotal:    subtotal,
		TaxAmount:   taxAmount,
		TotalAmount: roundHalfUp(subtotal.Add(taxAmount), AmountScale),
	}
}

// roundHalfUp rounds d to places fractional digits with ties going up.
// decimal.Round rounds ties away from zero, which is half-up for the
// non-negative amounts this package deals with.
func roundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}
