package integrity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-gl/internal/platform/httpx"
)

type Handler struct {
	checker *Checker
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, checker *Checker) *Handler {
	return &Handler{checker: checker, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Latest)
	r.Post("/run", h.Run)
}

// Latest serves the cached report.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.checker.Latest(r.Context())
	if errors.Is(err, ErrNoReport) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no integrity report has been produced yet")
		return
	}
	if err != nil {
		h.logger.Error("load integrity report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// Run executes a check synchronously.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.checker.Run(r.Context())
	if err != nil {
		h.logger.Error("integrity run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !report.Clean() {
		h.logger.Warn("integrity findings", slog.String("run_id", report.RunID), slog.Int("findings", len(report.Findings)))
	}
	httpx.JSON(w, http.StatusOK, report)
}
