package openingbalance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// BatchStatus is the one-way lifecycle of a batch.
type BatchStatus string

const (
	StatusDraft     BatchStatus = "draft"
	StatusFinalized BatchStatus = "finalized"
)

// Batch groups the starting balances entered for one as-of date.
type Batch struct {
	ID             int64       `json:"id"`
	AsOfDate       time.Time   `json:"as_of_date"`
	Memo           string      `json:"memo"`
	Status         BatchStatus `json:"status"`
	JournalEntryID *int64      `json:"journal_entry_id,omitempty"`
	FinalizedAt    *time.Time  `json:"finalized_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Lines          []Line      `json:"lines"`
}

// Line is one single-sided starting balance.
type Line struct {
	ID        int64           `json:"id"`
	BatchID   int64           `json:"batch_id"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// LineInput carries a new or replacement line.
type LineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Memo      string
}

// Validate applies the single-sided rule shared with journal lines.
func (in LineInput) Validate() error {
	if in.AccountID == 0 {
		return fmt.Errorf("%w: account required", shared.ErrInvalidLine)
	}
	if in.Debit.IsNegative() || in.Credit.IsNegative() {
		return fmt.Errorf("%w: negative amount", shared.ErrInvalidLine)
	}
	if shared.Round2(in.Debit).IsPositive() == shared.Round2(in.Credit).IsPositive() {
		return shared.ErrInvalidLine
	}
	return nil
}

func (in LineInput) normalize() LineInput {
	in.Debit = shared.Round2(in.Debit)
	in.Credit = shared.Round2(in.Credit)
	return in
}

// Difference returns round(sum(debit) - sum(credit), 2).
func Difference(lines []Line) decimal.Decimal {
	diff := decimal.Zero
	for _, line := range lines {
		diff = diff.Add(line.Debit).Sub(line.Credit)
	}
	return shared.Round2(diff)
}
