// Package accounting mounts the general ledger HTTP surface.
package accounting

import (
	"github.com/go-chi/chi/v5"
)

// Mounter is implemented by every ledger sub-handler.
type Mounter interface {
	MountRoutes(r chi.Router)
}

// Handler groups the ledger endpoints under one router. Nil members are skipped.
type Handler struct {
	Accounts        Mounter
	Journals        Mounter
	Posting         Mounter
	OpeningBalances Mounter
	Integrity       Mounter
	TrialBalance    Mounter
	Mappings        Mounter
	Audit           Mounter
}

// MountRoutes registers the ledger routes, normally under /gl.
func (h *Handler) MountRoutes(r chi.Router) {
	mount(r, "/accounts", h.Accounts)
	mount(r, "/journals", h.Journals)
	mount(r, "/post", h.Posting)
	mount(r, "/opening-balances", h.OpeningBalances)
	mount(r, "/integrity", h.Integrity)
	mount(r, "/trial-balance", h.TrialBalance)
	mount(r, "/mappings", h.Mappings)
	mount(r, "/audit", h.Audit)
}

func mount(r chi.Router, pattern string, m Mounter) {
	if m == nil {
		return
	}
	r.Route(pattern, m.MountRoutes)
}
