package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// PostingLineInput describes a journal line for posting request.
type PostingLineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Memo      string
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	EntryDate  time.Time
	EntryType  EntryType
	SourceType SourceType
	SourceID   int64
	Memo       string
	ActorID    int64
	Lines      []PostingLineInput
}

// Debit builds a debit line.
func Debit(accountID int64, amount decimal.Decimal, memo string) PostingLineInput {
	return PostingLineInput{AccountID: accountID, Debit: amount, Credit: decimal.Zero, Memo: memo}
}

// Credit builds a credit line.
func Credit(accountID int64, amount decimal.Decimal, memo string) PostingLineInput {
	return PostingLineInput{AccountID: accountID, Debit: decimal.Zero, Credit: amount, Memo: memo}
}

// Normalize rounds every amount to ledger precision.
func (in PostingInput) Normalize() PostingInput {
	out := in
	out.Lines = make([]PostingLineInput, len(in.Lines))
	for idx, line := range in.Lines {
		line.Debit = shared.Round2(line.Debit)
		line.Credit = shared.Round2(line.Credit)
		out.Lines[idx] = line
	}
	return out
}

// Totals sums both sides at ledger precision.
func (in PostingInput) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range in.Lines {
		debit = debit.Add(shared.Round2(line.Debit))
		credit = credit.Add(shared.Round2(line.Credit))
	}
	return debit, credit
}

// Validate ensures posting input meets minimum criteria.
func (in PostingInput) Validate() error {
	if in.EntryType == "" {
		return errors.New("accounting: entry type required")
	}
	if !in.SourceType.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrUnknownSourceType, in.SourceType)
	}
	if in.SourceID == 0 {
		return errors.New("accounting: source id required")
	}
	if in.EntryDate.IsZero() {
		return errors.New("accounting: entry date required")
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("accounting: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d negative amount", shared.ErrInvalidLine, idx)
		}
		debit := shared.Round2(line.Debit)
		credit := shared.Round2(line.Credit)
		if debit.IsPositive() == credit.IsPositive() {
			return fmt.Errorf("%w: line %d", shared.ErrInvalidLine, idx)
		}
	}
	debit, credit := in.Totals()
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s credit %s", shared.ErrUnbalanced, debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// ListFilter narrows journal listings.
type ListFilter struct {
	SourceType SourceType
	Limit      int
}
