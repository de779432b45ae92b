package posting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Lifecycle states read from source documents.
const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusSent  = "sent"
	InvoiceStatusVoid  = "void"

	PayrollStatusPaid = "paid"

	BatchStatusFinalized = "finalized"
)

// Invoice is the posting view of a customer invoice.
type Invoice struct {
	ID        int64
	Number    string
	IssueDate time.Time
	Status    string
	Total     decimal.Decimal
	TaxAmount decimal.Decimal
	Lines     []InvoiceLine
}

// InvoiceLine is a revenue line grouped by service category.
type InvoiceLine struct {
	Category string
	Amount   decimal.Decimal
}

// PaymentAllocation is the portion of a payment applied to one invoice.
// CashAccountID is the chart account of the payment's bank account, zero
// when the payment has none.
type PaymentAllocation struct {
	ID            int64
	PaymentID     int64
	InvoiceID     int64
	Amount        decimal.Decimal
	ReceivedAt    time.Time
	CashAccountID int64
}

// APBill is a vendor bill. ExpenseAccountID is zero when the bill carries
// no designated account.
type APBill struct {
	ID               int64
	Number           string
	BillDate         time.Time
	Amount           decimal.Decimal
	ExpenseAccountID int64
}

// APPayment settles part of a vendor bill.
type APPayment struct {
	ID            int64
	BillID        int64
	Amount        decimal.Decimal
	PaidAt        time.Time
	CashAccountID int64
}

// JobExpense is a cost booked against a job.
type JobExpense struct {
	ID            int64
	JobID         int64
	ExpenseType   string
	Description   string
	Amount        decimal.Decimal
	ExpenseDate   time.Time
	CashAccountID int64
}

// GeneralExpense is an overhead cost with an explicit account.
type GeneralExpense struct {
	ID            int64
	AccountID     int64
	Description   string
	Amount        decimal.Decimal
	ExpenseDate   time.Time
	CashAccountID int64
}

// PayrollPeriod carries the summed gross pay of every employee entry.
type PayrollPeriod struct {
	ID         int64
	Status     string
	PayDate    time.Time
	GrossTotal decimal.Decimal
}

// OpeningBalanceBatch carries the lines to copy into the ledger.
type OpeningBalanceBatch struct {
	ID       int64
	Status   string
	AsOfDate time.Time
	Memo     string
	Lines    []OpeningBalanceLine
}

// OpeningBalanceLine is one single-sided starting balance.
type OpeningBalanceLine struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Memo      string
}

// Documents loads source documents. Missing or soft-deleted documents
// return shared.ErrSourceNotFound.
type Documents interface {
	Invoice(ctx context.Context, id int64) (Invoice, error)
	PaymentAllocation(ctx context.Context, id int64) (PaymentAllocation, error)
	APBill(ctx context.Context, id int64) (APBill, error)
	APPayment(ctx context.Context, id int64) (APPayment, error)
	JobExpense(ctx context.Context, id int64) (JobExpense, error)
	GeneralExpense(ctx context.Context, id int64) (GeneralExpense, error)
	PayrollPeriod(ctx context.Context, id int64) (PayrollPeriod, error)
	OpeningBalanceBatch(ctx context.Context, id int64) (OpeningBalanceBatch, error)
}
