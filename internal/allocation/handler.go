package allocation

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

const idempotencyHeader = "Idempotency-Key"

type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) MountPaymentAllocations(r chi.Router) {
	r.Post("/", h.CreatePaymentAllocation)
	r.Patch("/{id}", h.UpdatePaymentAllocation)
	r.Delete("/{id}", h.DeletePaymentAllocation)
}

func (h *Handler) MountCreditApplications(r chi.Router) {
	r.Post("/", h.CreateCreditApplication)
	r.Patch("/{id}", h.UpdateCreditApplication)
	r.Delete("/{id}", h.DeleteCreditApplication)
}

func (h *Handler) MountAPPayments(r chi.Router) {
	r.Post("/", h.CreateAPPayment)
	r.Patch("/{id}", h.UpdateAPPayment)
	r.Delete("/{id}", h.DeleteAPPayment)
}

type paymentAllocationRequest struct {
	PaymentID int64           `json:"payment_id" validate:"required,gt=0"`
	InvoiceID int64           `json:"invoice_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
}

type creditApplicationRequest struct {
	CreditMemoID int64           `json:"credit_memo_id" validate:"required,gt=0"`
	InvoiceID    int64           `json:"invoice_id" validate:"required,gt=0"`
	Amount       decimal.Decimal `json:"amount"`
}

type apPaymentRequest struct {
	BillID        int64           `json:"bill_id" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        string          `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
	BankAccountID *int64          `json:"bank_account_id" validate:"omitempty,gt=0"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PaidAt string          `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
}

type writeResponse[T any] struct {
	Result[T]
	LedgerWarning string `json:"ledger_warning,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs[0].Field()+" failed "+fieldErrs[0].Tag())
			return false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

// idempotencyKey returns the request key, which must be a UUID when set.
func idempotencyKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.Header.Get(idempotencyHeader)
	if raw == "" {
		return "", true
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", idempotencyHeader+" must be a UUID")
		return "", false
	}
	return key.String(), true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", raw)
	return t
}

func respond[T any](h *Handler, w http.ResponseWriter, status int, res Result[T], err error) {
	var ledgerErr *LedgerPostError
	switch {
	case err == nil:
		httpx.JSON(w, status, writeResponse[T]{Result: res})
	case errors.As(err, &ledgerErr):
		h.logger.Warn("allocation recorded, ledger posting pending", slog.Bool("retryable", ledgerErr.Retryable), slog.Any("error", ledgerErr.Err))
		httpx.JSON(w, status, writeResponse[T]{Result: res, LedgerWarning: ledgerErr.Message, Retryable: ledgerErr.Retryable})
	case errors.Is(err, ErrAllocationRejected):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Allocation Rejected", err.Error())
	case errors.Is(err, ErrParentNotFound), errors.Is(err, ErrAllocationNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, internalShared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		h.logger.Error("allocation write failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) CreatePaymentAllocation(w http.ResponseWriter, r *http.Request) {
	key, ok := idempotencyKey(w, r)
	if !ok {
		return
	}
	var req paymentAllocationRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.CreatePaymentAllocation(r.Context(), PaymentAllocationInput{
		PaymentID:      req.PaymentID,
		InvoiceID:      req.InvoiceID,
		Amount:         req.Amount,
		IdempotencyKey: key,
	})
	respond(h, w, http.StatusCreated, res, err)
}

func (h *Handler) UpdatePaymentAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.UpdatePaymentAllocation(r.Context(), id, req.Amount)
	respond(h, w, http.StatusOK, res, err)
}

func (h *Handler) DeletePaymentAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.service.DeletePaymentAllocation(r.Context(), id)
	respond(h, w, http.StatusOK, res, err)
}

func (h *Handler) CreateCreditApplication(w http.ResponseWriter, r *http.Request) {
	key, ok := idempotencyKey(w, r)
	if !ok {
		return
	}
	var req creditApplicationRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.CreateCreditApplication(r.Context(), CreditApplicationInput{
		CreditMemoID:   req.CreditMemoID,
		InvoiceID:      req.InvoiceID,
		Amount:         req.Amount,
		IdempotencyKey: key,
	})
	respond(h, w, http.StatusCreated, res, err)
}

func (h *Handler) UpdateCreditApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.UpdateCreditApplication(r.Context(), id, req.Amount)
	respond(h, w, http.StatusOK, res, err)
}

func (h *Handler) DeleteCreditApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.service.DeleteCreditApplication(r.Context(), id)
	respond(h, w, http.StatusOK, res, err)
}

func (h *Handler) CreateAPPayment(w http.ResponseWriter, r *http.Request) {
	key, ok := idempotencyKey(w, r)
	if !ok {
		return
	}
	var req apPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.CreateAPPayment(r.Context(), APPaymentInput{
		BillID:         req.BillID,
		Amount:         req.Amount,
		PaidAt:         parseDate(req.PaidAt),
		BankAccountID:  req.BankAccountID,
		IdempotencyKey: key,
	})
	respond(h, w, http.StatusCreated, res, err)
}

func (h *Handler) UpdateAPPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.UpdateAPPayment(r.Context(), id, APPaymentInput{Amount: req.Amount, PaidAt: parseDate(req.PaidAt)})
	respond(h, w, http.StatusOK, res, err)
}

func (h *Handler) DeleteAPPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.service.DeleteAPPayment(r.Context(), id)
	respond(h, w, http.StatusOK, res, err)
}
