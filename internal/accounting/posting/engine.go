// Package posting turns source documents into balanced journal entries.
// Every routine is idempotent on (source type, source id).
package posting

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Ledger is the journal store the engine writes through.
type Ledger interface {
	FindBySource(ctx context.Context, sourceType journals.SourceType, sourceID int64) (journals.JournalEntry, error)
	PostJournal(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error)
	RemoveBySource(ctx context.Context, sourceType journals.SourceType, sourceID int64) (journals.JournalEntry, error)
	ReplaceBySource(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error)
}

// Chart resolves account roles and validates explicit account ids.
type Chart interface {
	Resolve(role accounts.Role) (int64, error)
	Account(id int64) (accounts.Account, error)
}

// RevenueMapper maps an invoice line category to a revenue account.
type RevenueMapper interface {
	RevenueAccount(ctx context.Context, category string) (int64, bool, error)
}

// Observer receives one outcome per posting attempt.
type Observer interface {
	ObservePosting(sourceType, outcome string)
}

// Posting outcomes reported to the Observer.
const (
	OutcomePosted        = "posted"
	OutcomeExisting      = "existing"
	OutcomeNothingToPost = "nothing_to_post"
	OutcomeRejected      = "rejected"
	OutcomeMisconfigured = "misconfigured"
	OutcomeError         = "error"
)

type builder func(ctx context.Context, id int64) (journals.PostingInput, error)

// Engine posts source documents to the ledger.
type Engine struct {
	docs     Documents
	ledger   Ledger
	chart    Chart
	revenue  RevenueMapper
	observer Observer
	builders map[journals.SourceType]builder
}

// NewEngine wires the engine. revenue may be nil, in which case every
// invoice line credits the default revenue account.
func NewEngine(docs Documents, ledger Ledger, chart Chart, revenue RevenueMapper) *Engine {
	e := &Engine{docs: docs, ledger: ledger, chart: chart, revenue: revenue}
	e.builders = map[journals.SourceType]builder{
		journals.SourceInvoice:             e.buildInvoice,
		journals.SourcePaymentAllocation:   e.buildPaymentAllocation,
		journals.SourceAPBill:              e.buildAPBill,
		journals.SourceAPPayment:           e.buildAPPayment,
		journals.SourceJobExpense:          e.buildJobExpense,
		journals.SourceGeneralExpense:      e.buildGeneralExpense,
		journals.SourcePayrollPeriod:       e.buildPayrollPeriod,
		journals.SourceOpeningBalanceBatch: e.buildOpeningBalanceBatch,
	}
	return e
}

// WithObserver attaches a metrics observer.
func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// Post creates the journal entry for a source document and returns its id.
// An existing live entry for the source is returned unchanged.
func (e *Engine) Post(ctx context.Context, sourceType journals.SourceType, sourceID int64) (int64, error) {
	id, outcome, err := e.post(ctx, sourceType, sourceID)
	e.observe(sourceType, outcome)
	return id, err
}

func (e *Engine) post(ctx context.Context, sourceType journals.SourceType, sourceID int64) (int64, string, error) {
	build, ok := e.builders[sourceType]
	if !ok {
		return 0, OutcomeRejected, fmt.Errorf("%w: %q", shared.ErrUnknownSourceType, sourceType)
	}
	if sourceID <= 0 {
		return 0, OutcomeRejected, fmt.Errorf("%w: %s %d", shared.ErrSourceNotFound, sourceType, sourceID)
	}
	existing, err := e.ledger.FindBySource(ctx, sourceType, sourceID)
	if err == nil {
		return existing.ID, OutcomeExisting, nil
	}
	if !errors.Is(err, shared.ErrJournalNotFound) {
		return 0, OutcomeError, err
	}

	input, err := build(ctx, sourceID)
	if err != nil {
		return 0, classify(err), err
	}
	entry, err := e.ledger.PostJournal(ctx, input)
	if errors.Is(err, shared.ErrSourceAlreadyLinked) {
		winner, ferr := e.ledger.FindBySource(ctx, sourceType, sourceID)
		if ferr != nil {
			return 0, OutcomeError, ferr
		}
		return winner.ID, OutcomeExisting, nil
	}
	if err != nil {
		return 0, classify(err), err
	}
	return entry.ID, OutcomePosted, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, shared.ErrNothingToPost):
		return OutcomeNothingToPost
	case errors.Is(err, shared.ErrAccountNotConfigured):
		return OutcomeMisconfigured
	case errors.Is(err, shared.ErrSourceNotFound),
		errors.Is(err, shared.ErrSourceNotPostable),
		errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrInvalidLine),
		errors.Is(err, shared.ErrTooFewLines),
		errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, shared.ErrBatchEmpty),
		errors.Is(err, shared.ErrPeriodLocked):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

func (e *Engine) observe(sourceType journals.SourceType, outcome string) {
	if e.observer != nil {
		e.observer.ObservePosting(string(sourceType), outcome)
	}
}

// Unpost removes the live entry for a source so a later Post rebuilds it
// from the current document. It is a no-op when nothing is posted.
func (e *Engine) Unpost(ctx context.Context, sourceType journals.SourceType, sourceID int64) error {
	_, err := e.ledger.RemoveBySource(ctx, sourceType, sourceID)
	return err
}

// Retract removes the live entry of a source on an operator's request.
// Opening balance batches are one-way, and payment allocations or A/P
// payments keep their entry while the allocation row exists; those entries
// change only through the batch and allocation workflows.
func (e *Engine) Retract(ctx context.Context, sourceType journals.SourceType, sourceID int64) error {
	if !sourceType.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrUnknownSourceType, sourceType)
	}
	var err error
	switch sourceType {
	case journals.SourceOpeningBalanceBatch:
		return fmt.Errorf("%w: opening balance batch %d is finalized one way", shared.ErrRetractRefused, sourceID)
	case journals.SourcePaymentAllocation:
		_, err = e.docs.PaymentAllocation(ctx, sourceID)
	case journals.SourceAPPayment:
		_, err = e.docs.APPayment(ctx, sourceID)
	}
	switch {
	case err == nil && (sourceType == journals.SourcePaymentAllocation || sourceType == journals.SourceAPPayment):
		return fmt.Errorf("%w: %s %d still exists", shared.ErrRetractRefused, sourceType, sourceID)
	case err != nil && !errors.Is(err, shared.ErrSourceNotFound):
		return err
	}
	return e.Unpost(ctx, sourceType, sourceID)
}

// Repost replaces the live entry for a source with one built from the
// current document. The replacement is built first and swapped in within one
// ledger transaction, so a failed rebuild leaves the previous entry live.
// A document that now has nothing to post loses its entry.
func (e *Engine) Repost(ctx context.Context, sourceType journals.SourceType, sourceID int64) (int64, error) {
	id, outcome, err := e.repost(ctx, sourceType, sourceID)
	e.observe(sourceType, outcome)
	return id, err
}

func (e *Engine) repost(ctx context.Context, sourceType journals.SourceType, sourceID int64) (int64, string, error) {
	build, ok := e.builders[sourceType]
	if !ok {
		return 0, OutcomeRejected, fmt.Errorf("%w: %q", shared.ErrUnknownSourceType, sourceType)
	}
	if sourceID <= 0 {
		return 0, OutcomeRejected, fmt.Errorf("%w: %s %d", shared.ErrSourceNotFound, sourceType, sourceID)
	}
	input, err := build(ctx, sourceID)
	if errors.Is(err, shared.ErrNothingToPost) {
		if uerr := e.Unpost(ctx, sourceType, sourceID); uerr != nil {
			return 0, OutcomeError, uerr
		}
		return 0, OutcomeNothingToPost, err
	}
	if err != nil {
		return 0, classify(err), err
	}
	entry, err := e.ledger.ReplaceBySource(ctx, input)
	if err != nil {
		return 0, classify(err), err
	}
	return entry.ID, OutcomePosted, nil
}

// PostInvoice posts an invoice that has been sent.
func (e *Engine) PostInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	return e.Post(ctx, journals.SourceInvoice, invoiceID)
}

// PostPaymentAllocation posts a committed payment allocation row.
func (e *Engine) PostPaymentAllocation(ctx context.Context, allocationID int64) (int64, error) {
	return e.Post(ctx, journals.SourcePaymentAllocation, allocationID)
}

func (e *Engine) PostAPBill(ctx context.Context, billID int64) (int64, error) {
	return e.Post(ctx, journals.SourceAPBill, billID)
}

func (e *Engine) PostAPPayment(ctx context.Context, paymentID int64) (int64, error) {
	return e.Post(ctx, journals.SourceAPPayment, paymentID)
}

func (e *Engine) PostJobExpense(ctx context.Context, expenseID int64) (int64, error) {
	return e.Post(ctx, journals.SourceJobExpense, expenseID)
}

func (e *Engine) PostGeneralExpense(ctx context.Context, expenseID int64) (int64, error) {
	return e.Post(ctx, journals.SourceGeneralExpense, expenseID)
}

// PostPayrollPeriod posts a paid payroll period. A period with zero gross
// pay returns shared.ErrNothingToPost and leaves no trace, so it posts
// normally once it carries pay.
func (e *Engine) PostPayrollPeriod(ctx context.Context, periodID int64) (int64, error) {
	return e.Post(ctx, journals.SourcePayrollPeriod, periodID)
}

// PostOpeningBalanceBatch posts a finalized batch by copying its lines.
func (e *Engine) PostOpeningBalanceBatch(ctx context.Context, batchID int64) (int64, error) {
	return e.Post(ctx, journals.SourceOpeningBalanceBatch, batchID)
}
