package accounts

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Lister loads the chart of accounts.
type Lister interface {
	List(ctx context.Context) ([]Account, error)
}

// Registry resolves account roles and ids against a snapshot of the chart.
// Load it once at startup; Load again after the chart changes.
type Registry struct {
	source Lister
	group  singleflight.Group

	mu       sync.RWMutex
	byNumber map[string]Account
	byID     map[int64]Account
}

// NewRegistry constructs an empty registry bound to source.
func NewRegistry(source Lister) *Registry {
	return &Registry{source: source, byNumber: map[string]Account{}, byID: map[int64]Account{}}
}

// Load refreshes the snapshot. Concurrent callers share one read.
func (r *Registry) Load(ctx context.Context) error {
	_, err, _ := r.group.Do("chart", func() (any, error) {
		list, err := r.source.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("accounts: load chart: %w", err)
		}
		byNumber := make(map[string]Account, len(list))
		byID := make(map[int64]Account, len(list))
		for _, acc := range list {
			byID[acc.ID] = acc
			if acc.IsDeleted {
				continue
			}
			byNumber[acc.Number] = acc
		}
		r.mu.Lock()
		r.byNumber = byNumber
		r.byID = byID
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// Resolve returns the account id bound to role.
func (r *Registry) Resolve(role Role) (int64, error) {
	acc, err := r.ByNumber(role.Number())
	if err != nil {
		return 0, fmt.Errorf("%w: %s", shared.ErrAccountNotConfigured, role)
	}
	return acc.ID, nil
}

// ByNumber returns the live account carrying number.
func (r *Registry) ByNumber(number string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byNumber[number]
	if !ok {
		return Account{}, fmt.Errorf("%w: number %s", shared.ErrAccountNotFound, number)
	}
	return acc, nil
}

// Account returns the live account with id.
func (r *Registry) Account(id int64) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	if !ok || acc.IsDeleted {
		return Account{}, fmt.Errorf("%w: id %d", shared.ErrAccountNotFound, id)
	}
	return acc, nil
}

// Missing lists roles the loaded chart cannot satisfy.
func (r *Registry) Missing() []Role {
	var out []Role
	for _, role := range AllRoles() {
		if _, err := r.Resolve(role); err != nil {
			out = append(out, role)
		}
	}
	return out
}
