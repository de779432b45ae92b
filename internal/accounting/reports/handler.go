package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-gl/internal/platform/httpx"
)

type Handler struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{repo: repo, logger: logger, now: time.Now}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.TrialBalance)
}

// TrialBalance serves GET /gl/trial-balance?as_of=YYYY-MM-DD.
func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf := h.now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	balances, err := h.repo.AccountBalances(r.Context(), asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	tb := BuildTrialBalance(asOf, balances)
	if !tb.Balanced {
		h.logger.Warn("trial balance out of balance", slog.String("debit", tb.TotalDebit.StringFixed(2)), slog.String("credit", tb.TotalCredit.StringFixed(2)))
	}
	httpx.JSON(w, http.StatusOK, tb)
}
