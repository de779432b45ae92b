package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType enumerates the business events a journal entry may represent.
type EntryType string

const (
	EntryTypeOpeningBalance    EntryType = "opening_balance"
	EntryTypeInvoice           EntryType = "invoice"
	EntryTypePaymentAllocation EntryType = "payment_allocation"
	EntryTypeJobExpense        EntryType = "job_expense"
	EntryTypeGeneralExpense    EntryType = "general_expense"
	EntryTypePayroll           EntryType = "payroll"
	EntryTypeAPBill            EntryType = "ap_bill"
	EntryTypeAPPayment         EntryType = "ap_payment"
	EntryTypeManual            EntryType = "manual"
)

// SourceType names the originating document kind. Together with the
// document id it forms the posting idempotency key.
type SourceType string

const (
	SourceInvoice             SourceType = "invoice"
	SourcePaymentAllocation   SourceType = "payment_allocation"
	SourceAPBill              SourceType = "ap_bill"
	SourceAPPayment           SourceType = "ap_payment"
	SourceJobExpense          SourceType = "job_expense"
	SourceGeneralExpense      SourceType = "general_expense"
	SourcePayrollPeriod       SourceType = "payroll_period"
	SourceOpeningBalanceBatch SourceType = "opening_balance_batch"
	SourceManual              SourceType = "manual"
)

var entryTypeBySource = map[SourceType]EntryType{
	SourceInvoice:             EntryTypeInvoice,
	SourcePaymentAllocation:   EntryTypePaymentAllocation,
	SourceAPBill:              EntryTypeAPBill,
	SourceAPPayment:           EntryTypeAPPayment,
	SourceJobExpense:          EntryTypeJobExpense,
	SourceGeneralExpense:      EntryTypeGeneralExpense,
	SourcePayrollPeriod:       EntryTypePayroll,
	SourceOpeningBalanceBatch: EntryTypeOpeningBalance,
	SourceManual:              EntryTypeManual,
}

// EntryType returns the entry type posted for the source, or "" when unknown.
func (s SourceType) EntryType() EntryType {
	return entryTypeBySource[s]
}

// Valid reports whether the source type is known.
func (s SourceType) Valid() bool {
	_, ok := entryTypeBySource[s]
	return ok
}

// JournalEntry captures posting metadata.
type JournalEntry struct {
	ID         int64         `json:"id"`
	EntryDate  time.Time     `json:"entry_date"`
	EntryType  EntryType     `json:"entry_type"`
	SourceType SourceType    `json:"source_type"`
	SourceID   int64         `json:"source_id"`
	Memo       string        `json:"memo"`
	Posted     bool          `json:"posted"`
	PostedAt   *time.Time    `json:"posted_at,omitempty"`
	DeletedAt  *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	Lines      []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID             int64           `json:"id"`
	JournalEntryID int64           `json:"journal_entry_id"`
	AccountID      int64           `json:"account_id"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Memo           string          `json:"memo,omitempty"`
}

// Totals sums the debit and credit sides of lines.
func Totals(lines []JournalLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}
