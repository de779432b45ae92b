// Package accountstest builds loaded registries for tests. Seeded accounts
// use their account number as id, so 1100 is Accounts Receivable.
package accountstest

import (
	"context"
	"strconv"
	"testing"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
)

type staticLister []accounts.Account

func (s staticLister) List(context.Context) ([]accounts.Account, error) {
	return s, nil
}

// Chart returns the default chart, skipping the given roles.
func Chart(skip ...accounts.Role) []accounts.Account {
	skipped := map[string]bool{}
	for _, role := range skip {
		skipped[role.Number()] = true
	}
	var out []accounts.Account
	for _, seed := range accounts.DefaultChart() {
		if skipped[seed.Number] {
			continue
		}
		id, _ := strconv.ParseInt(seed.Number, 10, 64)
		out = append(out, accounts.Account{
			ID:            id,
			Number:        seed.Number,
			Name:          seed.Name,
			Type:          seed.Type,
			NormalBalance: seed.NormalBalance,
		})
	}
	return out
}

// Registry returns a registry loaded with list.
func Registry(t testing.TB, list []accounts.Account) *accounts.Registry {
	t.Helper()
	reg := accounts.NewRegistry(staticLister(list))
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("load chart: %v", err)
	}
	return reg
}

// Default returns a registry loaded with the full default chart.
func Default(t testing.TB) *accounts.Registry {
	return Registry(t, Chart())
}
