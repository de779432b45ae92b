package mappings

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/platform/httpx"
)

// AccountChecker resolves a live chart account.
type AccountChecker interface {
	Account(id int64) (accounts.Account, error)
}

// Handler exposes the category to revenue account table.
type Handler struct {
	repo      Repository
	accounts  AccountChecker
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, repo Repository, checker AccountChecker) *Handler {
	return &Handler{repo: repo, accounts: checker, logger: logger, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/revenue", h.ListRevenue)
	r.Put("/revenue/{category}", h.PutRevenue)
}

type revenueRequest struct {
	AccountID int64 `json:"account_id" validate:"required,gt=0"`
}

func (h *Handler) ListRevenue(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListRevenue(r.Context())
	if err != nil {
		h.logger.Error("list revenue mappings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []RevenueMapping{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mappings": list})
}

// PutRevenue binds a category to a live revenue account.
func (h *Handler) PutRevenue(w http.ResponseWriter, r *http.Request) {
	category := NormalizeCategory(chi.URLParam(r, "category"))
	if category == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category required")
		return
	}
	var req revenueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	acc, err := h.accounts.Account(req.AccountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if acc.Type != accounts.AccountTypeRevenue {
		httpx.RespondError(w, fmt.Errorf("%w: account %s is %s, not revenue", shared.ErrAccountNotFound, acc.Number, acc.Type))
		return
	}
	if err := h.repo.UpsertRevenue(r.Context(), category, acc.ID); err != nil {
		h.logger.Error("upsert revenue mapping", slog.String("category", category), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"category": category, "account_id": acc.ID})
}
