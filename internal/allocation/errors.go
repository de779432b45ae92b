package allocation

import "errors"

var (
	// ErrAllocationRejected is wrapped by every limit violation.
	ErrAllocationRejected = errors.New("allocation: rejected")
	// ErrNonPositiveAmount indicates an amount that is zero or negative.
	ErrNonPositiveAmount = errors.New("allocation: amount must be positive")
	// ErrExceedsInvoiceBalance indicates the invoice cannot absorb the amount.
	ErrExceedsInvoiceBalance = errors.New("allocation: amount exceeds invoice balance")
	// ErrExceedsSourceRemaining indicates the payment or memo is exhausted.
	ErrExceedsSourceRemaining = errors.New("allocation: amount exceeds source remaining")
	// ErrExceedsBillBalance indicates the bill cannot absorb the payment.
	ErrExceedsBillBalance = errors.New("allocation: amount exceeds bill balance")
	// ErrCreditMemoNotApplicable indicates a draft, voided or deleted memo.
	ErrCreditMemoNotApplicable = errors.New("allocation: credit memo not applicable")
	// ErrParentUnavailable indicates a void or deleted invoice, payment or bill.
	ErrParentUnavailable = errors.New("allocation: parent document unavailable")
	// ErrParentNotFound indicates a missing invoice, payment, memo or bill.
	ErrParentNotFound = errors.New("allocation: parent document not found")
	// ErrAllocationNotFound indicates a missing allocation row.
	ErrAllocationNotFound = errors.New("allocation: allocation not found")
)
