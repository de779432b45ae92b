// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicate     = errors.New("duplicate entry")
	ErrValidation    = errors.New("validation failed")
	ErrUnprocessable = errors.New("unprocessable request")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, shared.ErrJournalNotFound),
		errors.Is(err, shared.ErrSourceNotFound),
		errors.Is(err, shared.ErrBatchNotFound),
		errors.Is(err, shared.ErrBatchLineNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate),
		errors.Is(err, shared.ErrSourceAlreadyLinked),
		errors.Is(err, shared.ErrSourceNotPostable),
		errors.Is(err, shared.ErrRetractRefused),
		errors.Is(err, shared.ErrBatchFinalized),
		errors.Is(err, shared.ErrPeriodLocked):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation),
		errors.Is(err, shared.ErrUnknownSourceType):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnprocessable),
		errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrTooFewLines),
		errors.Is(err, shared.ErrInvalidLine),
		errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, shared.ErrBatchEmpty),
		errors.Is(err, shared.ErrBatchUnbalanced):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(err, shared.ErrAccountNotConfigured):
		Problem(w, http.StatusInternalServerError, "Chart Of Accounts Misconfigured", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
