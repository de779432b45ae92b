package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrInvalidLine indicates a line that is not single-sided and positive.
	ErrInvalidLine = errors.New("accounting: journal line must carry exactly one positive side")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrPeriodLocked indicates locked period.
	ErrPeriodLocked = errors.New("accounting: period locked")
	// ErrAccountNotConfigured indicates a required chart of accounts code is missing.
	ErrAccountNotConfigured = errors.New("accounting: required account not configured")
	// ErrAccountNotFound indicates the referenced account does not exist or is deleted.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrSourceNotFound indicates the posting source document is missing.
	ErrSourceNotFound = errors.New("accounting: source document not found")
	// ErrRetractRefused indicates the entry of a source may only be removed by its own workflow.
	ErrRetractRefused = errors.New("accounting: journal entry cannot be retracted for this source")
	// ErrSourceNotPostable indicates the source document is not in a postable state.
	ErrSourceNotPostable = errors.New("accounting: source document not postable")
	// ErrNothingToPost indicates the source has no financial effect; no entry is created.
	ErrNothingToPost = errors.New("accounting: nothing to post")
	// ErrUnknownSourceType indicates the posting engine has no recipe for the source.
	ErrUnknownSourceType = errors.New("accounting: unknown source type")
	// ErrSourceConflict indicates the source link already exists.
	ErrSourceConflict = errors.New("accounting: source link conflict")
	// ErrBatchNotFound indicates a missing opening balance batch.
	ErrBatchNotFound = errors.New("accounting: opening balance batch not found")
	// ErrBatchLineNotFound indicates a missing line within a batch.
	ErrBatchLineNotFound = errors.New("accounting: opening balance line not found")
	// ErrBatchFinalized indicates an edit on a finalized batch.
	ErrBatchFinalized = errors.New("accounting: opening balance batch already finalized")
	// ErrBatchEmpty indicates a finalize attempt on a batch without lines.
	ErrBatchEmpty = errors.New("accounting: opening balance batch has no lines")
	// ErrBatchUnbalanced indicates batch debits and credits differ.
	ErrBatchUnbalanced = errors.New("accounting: opening balance batch not balanced")
)
