package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// InvoicePaymentStatus derives an invoice's payment status from totals.
func InvoicePaymentStatus(total, paid, credits decimal.Decimal) PaymentStatus {
	effective := shared.Round2(total.Sub(credits))
	paid = shared.Round2(paid)
	switch {
	case !effective.IsPositive(), paid.GreaterThanOrEqual(effective):
		return PaymentPaid
	case !paid.IsPositive():
		return PaymentUnpaid
	default:
		return PaymentPartial
	}
}

// BillPaymentStatus derives a bill's payment status from totals.
func BillPaymentStatus(amount, paid decimal.Decimal) PaymentStatus {
	amount = shared.Round2(amount)
	paid = shared.Round2(paid)
	switch {
	case amount.IsPositive() && paid.GreaterThanOrEqual(amount):
		return PaymentPaid
	case !paid.IsPositive():
		return PaymentUnpaid
	default:
		return PaymentPartial
	}
}

// MemoStatus derives a credit memo's status. Draft and voided memos keep
// their status.
func MemoStatus(current CreditMemoStatus, applied decimal.Decimal) CreditMemoStatus {
	if current == MemoDraft || current == MemoVoided {
		return current
	}
	if !shared.Round2(applied).IsPositive() {
		return MemoIssued
	}
	return MemoApplied
}

// Recompute refreshes the invoice's derived fields from its totals.
func (inv Invoice) Recompute(paid, credits decimal.Decimal) Invoice {
	inv.AmountPaid = shared.Round2(paid)
	inv.CreditApplied = shared.Round2(credits)
	inv.BalanceDue = shared.Round2(inv.Total.Sub(paid).Sub(credits))
	inv.PaymentStatus = InvoicePaymentStatus(inv.Total, paid, credits)
	return inv
}

// Recompute refreshes the bill's derived fields from its payments.
func (b Bill) Recompute(paid decimal.Decimal) Bill {
	b.AmountPaid = shared.Round2(paid)
	b.PaymentStatus = BillPaymentStatus(b.Amount, paid)
	return b
}

// Recompute refreshes the memo's derived fields from its applications.
func (m CreditMemo) Recompute(applied decimal.Decimal) CreditMemo {
	m.AppliedTotal = shared.Round2(applied)
	m.Status = MemoStatus(m.Status, applied)
	return m
}
