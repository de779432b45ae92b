package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/platform/httpx"
)

type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type manualLineRequest struct {
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo" validate:"max=255"`
}

type manualEntryRequest struct {
	EntryDate string              `json:"entry_date" validate:"required,datetime=2006-01-02"`
	SourceID  int64               `json:"source_id" validate:"required,gt=0"`
	Memo      string              `json:"memo" validate:"max=500"`
	Lines     []manualLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{SourceType: SourceType(r.URL.Query().Get("source_type"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a number")
			return
		}
		filter.Limit = limit
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journal_entries": entries})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid journal id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

// ShowBySource returns the live entry posted for a source document.
func (h *Handler) ShowBySource(w http.ResponseWriter, r *http.Request) {
	sourceType := SourceType(chi.URLParam(r, "sourceType"))
	if !sourceType.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown source type")
		return
	}
	sourceID, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
	if err != nil || sourceID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid source id")
		return
	}
	entry, err := h.service.FindBySource(r.Context(), sourceType, sourceID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs[0].Field()+" failed "+fieldErrs[0].Tag())
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.EntryDate)
	input := PostingInput{
		EntryDate:  date,
		EntryType:  EntryTypeManual,
		SourceType: SourceManual,
		SourceID:   req.SourceID,
		Memo:       req.Memo,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		})
	}
	entry, err := h.service.PostJournal(r.Context(), input)
	if err != nil {
		h.logger.Warn("post manual journal", slog.Int64("source_id", req.SourceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}
