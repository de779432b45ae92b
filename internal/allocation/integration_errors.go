package allocation

import (
	"errors"
	"fmt"

	accounting "github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// LedgerPostError indicates the allocation was recorded but journal posting failed.
type LedgerPostError struct {
	Err       error
	Retryable bool
	Message   string
}

func (e *LedgerPostError) Error() string {
	return e.Message
}

func (e *LedgerPostError) Unwrap() error {
	return e.Err
}

func wrapLedgerPostError(err error) *LedgerPostError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, accounting.ErrPeriodLocked):
		return &LedgerPostError{
			Err:       err,
			Retryable: true,
			Message:   "Ledger period locked; allocation recorded but journal posting pending",
		}
	case errors.Is(err, accounting.ErrAccountNotConfigured):
		return &LedgerPostError{
			Err:       err,
			Retryable: true,
			Message:   "Chart of accounts incomplete; allocation recorded but journal posting pending",
		}
	case errors.Is(err, accounting.ErrAccountNotFound):
		return &LedgerPostError{
			Err:       err,
			Retryable: true,
			Message:   "Journal line references a missing or deleted ledger account; allocation recorded but journal posting pending",
		}
	default:
		return &LedgerPostError{
			Err:       err,
			Retryable: false,
			Message:   fmt.Sprintf("Failed to post allocation to ledger; allocation recorded but journal posting pending (%s)", err.Error()),
		}
	}
}
