// Package integrity scans the ledger and allocation tables for records that
// violate the posting invariants.
package integrity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FindingKind classifies one violation.
type FindingKind string

const (
	FindingUnbalancedEntry FindingKind = "unbalanced_entry"
	FindingPostedFlag      FindingKind = "posted_flag_mismatch"
	FindingInvoiceStatus   FindingKind = "invoice_status"
	FindingBillStatus      FindingKind = "bill_status"
	FindingMemoStatus      FindingKind = "credit_memo_status"
)

type Finding struct {
	Kind     FindingKind `json:"kind"`
	Entity   string      `json:"entity"`
	EntityID int64       `json:"entity_id"`
	Stored   string      `json:"stored,omitempty"`
	Expected string      `json:"expected,omitempty"`
	Detail   string      `json:"detail"`
}

// Report is the outcome of one Run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Checked    Counts    `json:"checked"`
	Findings   []Finding `json:"findings"`
}

// Clean reports whether the run found nothing.
func (r Report) Clean() bool {
	return len(r.Findings) == 0
}

type Counts struct {
	Entries     int `json:"entries"`
	Invoices    int `json:"invoices"`
	Bills       int `json:"bills"`
	CreditMemos int `json:"credit_memos"`
}

// EntryTotals is one journal entry with its persisted line sums.
type EntryTotals struct {
	ID         int64
	Posted     bool
	PostedAt   *time.Time
	DebitSum   decimal.Decimal
	CreditSum  decimal.Decimal
	SourceType string
	SourceID   int64
}

// InvoiceTotals pairs an invoice's stored status with its allocation sums.
type InvoiceTotals struct {
	ID            int64
	Total         decimal.Decimal
	StoredStatus  string
	StoredBalance decimal.Decimal
	Paid          decimal.Decimal
	Credits       decimal.Decimal
}

type BillTotals struct {
	ID           int64
	Amount       decimal.Decimal
	StoredStatus string
	Paid         decimal.Decimal
}

type MemoTotals struct {
	ID           int64
	StoredStatus string
	Applied      decimal.Decimal
}
