package accounts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

type stubLister struct {
	accounts []Account
	calls    atomic.Int32
	err      error
}

func (s *stubLister) List(ctx context.Context) ([]Account, error) {
	s.calls.Add(1)
	return s.accounts, s.err
}

func seededAccounts() []Account {
	var out []Account
	for idx, seed := range DefaultChart() {
		out = append(out, Account{ID: int64(idx + 1), Number: seed.Number, Name: seed.Name, Type: seed.Type, NormalBalance: seed.NormalBalance})
	}
	return out
}

func TestRegistryResolvesSeededRoles(t *testing.T) {
	reg := NewRegistry(&stubLister{accounts: seededAccounts()})
	require.NoError(t, reg.Load(context.Background()))

	for _, role := range AllRoles() {
		id, err := reg.Resolve(role)
		require.NoError(t, err, role.String())
		acc, err := reg.Account(id)
		require.NoError(t, err)
		require.Equal(t, role.Number(), acc.Number)
	}
	require.Empty(t, reg.Missing())
}

func TestRegistryMissingRoleIsConfigurationError(t *testing.T) {
	accounts := seededAccounts()
	for idx := range accounts {
		if accounts[idx].Number == "2300" {
			accounts[idx].IsDeleted = true
		}
	}
	reg := NewRegistry(&stubLister{accounts: accounts})
	require.NoError(t, reg.Load(context.Background()))

	_, err := reg.Resolve(RoleSalesTaxPayable)
	require.ErrorIs(t, err, shared.ErrAccountNotConfigured)
	require.Contains(t, err.Error(), "2300")
	require.Equal(t, []Role{RoleSalesTaxPayable}, reg.Missing())

	var deletedID int64
	for _, acc := range accounts {
		if acc.IsDeleted {
			deletedID = acc.ID
		}
	}
	_, err = reg.Account(deletedID)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestRegistryLoadPropagatesError(t *testing.T) {
	reg := NewRegistry(&stubLister{err: errors.New("boom")})
	require.Error(t, reg.Load(context.Background()))
	_, err := reg.Resolve(RoleCash)
	require.ErrorIs(t, err, shared.ErrAccountNotConfigured)
}

func TestRegistryConcurrentLoadsAreSafe(t *testing.T) {
	lister := &stubLister{accounts: seededAccounts()}
	reg := NewRegistry(lister)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- reg.Load(context.Background())
			_, _ = reg.Resolve(RoleCash)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, lister.calls.Load(), int32(1))
	_, err := reg.Resolve(RoleCash)
	require.NoError(t, err)
}
