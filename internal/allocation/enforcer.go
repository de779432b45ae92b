package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// InvoiceSnapshot holds invoice totals read under lock. Other* sums
// exclude the row being replaced.
type InvoiceSnapshot struct {
	Invoice       Invoice
	OtherPayments decimal.Decimal
	OtherCredits  decimal.Decimal
}

// Balance is total minus every other payment and credit.
func (s InvoiceSnapshot) Balance() decimal.Decimal {
	return shared.Round2(s.Invoice.Total.Sub(s.OtherPayments).Sub(s.OtherCredits))
}

// SourceSnapshot holds a payment or memo amount and what else it funds.
type SourceSnapshot struct {
	Amount         decimal.Decimal
	OtherAllocated decimal.Decimal
	Deleted        bool
}

// Remaining is the source amount not yet allocated elsewhere.
func (s SourceSnapshot) Remaining() decimal.Decimal {
	return shared.Round2(s.Amount.Sub(s.OtherAllocated))
}

// BillSnapshot holds bill totals read under lock.
type BillSnapshot struct {
	Bill      Bill
	OtherPaid decimal.Decimal
}

// Remaining is the bill amount not covered by other payments.
func (s BillSnapshot) Remaining() decimal.Decimal {
	return shared.Round2(s.Bill.Amount.Sub(s.OtherPaid))
}

func reject(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrAllocationRejected, kind, fmt.Sprintf(format, args...))
}

func checkAmount(amount decimal.Decimal) error {
	if !shared.Round2(amount).IsPositive() {
		return reject(ErrNonPositiveAmount, "got %s", amount.String())
	}
	return nil
}

func checkInvoice(amount decimal.Decimal, inv InvoiceSnapshot) error {
	if inv.Invoice.DeletedAt != nil || inv.Invoice.Status == InvoiceVoid {
		return reject(ErrParentUnavailable, "invoice %d", inv.Invoice.ID)
	}
	if balance := inv.Balance(); shared.Round2(amount).GreaterThan(balance) {
		return reject(ErrExceedsInvoiceBalance, "invoice %d balance %s, requested %s", inv.Invoice.ID, balance.StringFixed(2), shared.Round2(amount).StringFixed(2))
	}
	return nil
}

func checkSource(amount decimal.Decimal, src SourceSnapshot, label string) error {
	if remaining := src.Remaining(); shared.Round2(amount).GreaterThan(remaining) {
		return reject(ErrExceedsSourceRemaining, "%s remaining %s, requested %s", label, remaining.StringFixed(2), shared.Round2(amount).StringFixed(2))
	}
	return nil
}

// CheckPaymentAllocation bounds a payment allocation by the invoice balance
// and the payment's unallocated amount.
func CheckPaymentAllocation(amount decimal.Decimal, inv InvoiceSnapshot, payment SourceSnapshot) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if payment.Deleted {
		return reject(ErrParentUnavailable, "payment deleted")
	}
	if err := checkInvoice(amount, inv); err != nil {
		return err
	}
	return checkSource(amount, payment, "payment")
}

// CheckCreditApplication bounds a credit application by the invoice balance
// and the memo's unapplied amount. Draft, voided and deleted memos never
// accept applications.
func CheckCreditApplication(amount decimal.Decimal, inv InvoiceSnapshot, memo SourceSnapshot, status CreditMemoStatus) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if memo.Deleted || status == MemoDraft || status == MemoVoided {
		return reject(ErrCreditMemoNotApplicable, "memo status %s", status)
	}
	if err := checkInvoice(amount, inv); err != nil {
		return err
	}
	return checkSource(amount, memo, "credit memo")
}

// CheckAPPayment bounds a vendor payment by the bill's unpaid amount.
func CheckAPPayment(amount decimal.Decimal, bill BillSnapshot) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if bill.Bill.DeletedAt != nil || bill.Bill.Status == BillVoid {
		return reject(ErrParentUnavailable, "bill %d", bill.Bill.ID)
	}
	if remaining := bill.Remaining(); shared.Round2(amount).GreaterThan(remaining) {
		return reject(ErrExceedsBillBalance, "bill %d remaining %s, requested %s", bill.Bill.ID, remaining.StringFixed(2), shared.Round2(amount).StringFixed(2))
	}
	return nil
}
