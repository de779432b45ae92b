package posting

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/platform/httpx"
)

type Handler struct {
	engine *Engine
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{sourceType}/{sourceID}", h.Post)
	r.Delete("/{sourceType}/{sourceID}", h.Unpost)
}

type postResponse struct {
	SourceType     string `json:"source_type"`
	SourceID       int64  `json:"source_id"`
	JournalEntryID int64  `json:"journal_entry_id,omitempty"`
	Posted         bool   `json:"posted"`
	Reason         string `json:"reason,omitempty"`
}

func parseSource(r *http.Request) (journals.SourceType, int64, error) {
	sourceType := journals.SourceType(chi.URLParam(r, "sourceType"))
	sourceID, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
	if err != nil || sourceID <= 0 {
		return "", 0, errors.New("invalid source id")
	}
	return sourceType, sourceID, nil
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	sourceType, sourceID, err := parseSource(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entryID, err := h.engine.Post(r.Context(), sourceType, sourceID)
	resp := postResponse{SourceType: string(sourceType), SourceID: sourceID}
	switch {
	case errors.Is(err, shared.ErrNothingToPost):
		resp.Reason = err.Error()
		httpx.JSON(w, http.StatusOK, resp)
		return
	case errors.Is(err, shared.ErrAccountNotConfigured):
		h.logger.Error("posting aborted: chart of accounts incomplete",
			slog.String("source_type", string(sourceType)), slog.Int64("source_id", sourceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	case err != nil:
		h.logger.Warn("posting failed",
			slog.String("source_type", string(sourceType)), slog.Int64("source_id", sourceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp.JournalEntryID = entryID
	resp.Posted = true
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Unpost(w http.ResponseWriter, r *http.Request) {
	sourceType, sourceID, err := parseSource(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !sourceType.Valid() {
		httpx.RespondError(w, shared.ErrUnknownSourceType)
		return
	}
	if err := h.engine.Retract(r.Context(), sourceType, sourceID); err != nil {
		if errors.Is(err, shared.ErrRetractRefused) {
			httpx.RespondError(w, err)
			return
		}
		h.logger.Error("unpost failed", slog.String("source_type", string(sourceType)), slog.Int64("source_id", sourceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
