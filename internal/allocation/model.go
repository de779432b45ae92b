package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the invoice lifecycle, independent of payment status.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoiceVoid  InvoiceStatus = "void"
)

// PaymentStatus is derived from allocation totals.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// CreditMemoStatus is the credit memo lifecycle.
type CreditMemoStatus string

const (
	MemoDraft   CreditMemoStatus = "draft"
	MemoIssued  CreditMemoStatus = "issued"
	MemoApplied CreditMemoStatus = "applied"
	MemoVoided  CreditMemoStatus = "voided"
)

// BillStatus is the vendor bill lifecycle.
type BillStatus string

const (
	BillOpen BillStatus = "open"
	BillVoid BillStatus = "void"
)

// Invoice is a customer invoice with its derived allocation fields.
type Invoice struct {
	ID            int64           `json:"id"`
	Number        string          `json:"invoice_number"`
	Status        InvoiceStatus   `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	CreditApplied decimal.Decimal `json:"credit_applied"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// Payment is money received that can be split across invoices.
type Payment struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// CreditMemo is customer credit that can be applied to invoices.
type CreditMemo struct {
	ID           int64            `json:"id"`
	Number       string           `json:"memo_number"`
	Amount       decimal.Decimal  `json:"amount"`
	AppliedTotal decimal.Decimal  `json:"applied_total"`
	Status       CreditMemoStatus `json:"status"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty"`
}

// Bill is a vendor bill settled by A/P payments.
type Bill struct {
	ID            int64           `json:"id"`
	Number        string          `json:"bill_number"`
	Amount        decimal.Decimal `json:"amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Status        BillStatus      `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

type PaymentAllocation struct {
	ID        int64           `json:"id"`
	PaymentID int64           `json:"payment_id"`
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreditApplication struct {
	ID           int64           `json:"id"`
	CreditMemoID int64           `json:"credit_memo_id"`
	InvoiceID    int64           `json:"invoice_id"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type APPayment struct {
	ID            int64           `json:"id"`
	BillID        int64           `json:"bill_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
	BankAccountID *int64          `json:"bank_account_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PaymentAllocationInput struct {
	PaymentID      int64
	InvoiceID      int64
	Amount         decimal.Decimal
	IdempotencyKey string
}

type CreditApplicationInput struct {
	CreditMemoID   int64
	InvoiceID      int64
	Amount         decimal.Decimal
	IdempotencyKey string
}

type APPaymentInput struct {
	BillID         int64
	Amount         decimal.Decimal
	PaidAt         time.Time
	BankAccountID  *int64
	IdempotencyKey string
}

// Result reports a committed write together with the parents it touched.
type Result[T any] struct {
	Row     T           `json:"row"`
	Invoice *Invoice    `json:"invoice,omitempty"`
	Memo    *CreditMemo `json:"credit_memo,omitempty"`
	Bill    *Bill       `json:"bill,omitempty"`
}
