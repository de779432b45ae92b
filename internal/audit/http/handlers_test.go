package audithttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/audit"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(_ context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(_ context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newRouter(service *stubTimelineService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), service)
	h.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/gl/audit", h.MountRoutes)
	return r
}

func TestTimelineDefaultsAndFilters(t *testing.T) {
	service := &stubTimelineService{result: audit.Result{
		Rows:   []audit.TimelineRow{{ID: 1, Action: "post", Entity: "journal_entry", EntityID: "41"}},
		Paging: audit.PagingInfo{Page: 1, PageSize: 20},
	}}
	router := newRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gl/audit?entity=journal_entry&entity_id=41&page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body audit.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)

	f := service.lastFilters
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), f.To)
	require.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), f.From)
	require.Equal(t, "journal_entry", f.Entity)
	require.Equal(t, "41", f.EntityID)
	require.Equal(t, 2, f.Page)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	router := newRouter(&stubTimelineService{})
	for _, query := range []string{
		"from=2025-03-10&to=2025-03-01",
		"from=2024-01-01&to=2025-03-01",
		"to=03/01/2025",
		"page=0",
		"page_size=abc",
		"actor_id=-4",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gl/audit?"+query, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestExportCSV(t *testing.T) {
	service := &stubTimelineService{exportRows: []audit.TimelineRow{
		{ID: 3, At: time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC), Action: "finalize", Entity: "opening_balance_batch", EntityID: "2"},
	}}
	router := newRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gl/audit/export.csv?action=finalize", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "3,2025-03-09T08:00:00Z,,finalize,opening_balance_batch,2,", lines[1])
	require.Equal(t, "finalize", service.lastFilters.Action)
}

func TestExportRateLimited(t *testing.T) {
	router := newRouter(&stubTimelineService{})
	last := 0
	for i := 0; i <= rateLimit; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gl/audit/export.csv", nil))
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
