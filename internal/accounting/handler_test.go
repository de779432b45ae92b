package accounting

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type pingMounter string

func (p pingMounter) MountRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(p))
	})
}

func TestHandlerMountsMembers(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/gl", (&Handler{
		Accounts:  pingMounter("accounts"),
		Integrity: pingMounter("integrity"),
	}).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gl/accounts/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "accounts", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gl/integrity/", nil))
	require.Equal(t, "integrity", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gl/journals/", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
