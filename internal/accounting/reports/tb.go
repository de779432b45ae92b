// Package reports builds ledger reports from posted journal lines.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// AccountBalance is one account's posted activity up to the report date.
type AccountBalance struct {
	AccountID int64           `json:"account_id"`
	Number    string          `json:"account_number"`
	Name      string          `json:"name"`
	Type      string          `json:"account_type"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// Net is debit minus credit.
func (a AccountBalance) Net() decimal.Decimal {
	return shared.Round2(a.Debit.Sub(a.Credit))
}

// GroupKey groups accounts by the leading digit of their number.
func (a AccountBalance) GroupKey() string {
	if a.Number == "" {
		return ""
	}
	return a.Number[:1]
}

type TrialBalanceGroup struct {
	Key      string           `json:"key"`
	Accounts []AccountBalance `json:"accounts"`
	Debit    decimal.Decimal  `json:"debit"`
	Credit   decimal.Decimal  `json:"credit"`
}

// TrialBalance lists posted totals per account, grouped by account class.
type TrialBalance struct {
	AsOf        time.Time           `json:"as_of"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balanced    bool                `json:"balanced"`
}

// BuildTrialBalance groups account balances and totals both sides.
func BuildTrialBalance(asOf time.Time, accounts []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range accounts {
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Accounts = append(grp.Accounts, acc)
		grp.Debit = grp.Debit.Add(acc.Debit)
		grp.Credit = grp.Credit.Add(acc.Credit)
	}

	sort.Strings(keys)
	result := TrialBalance{AsOf: asOf, Groups: []TrialBalanceGroup{}, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Number < grp.Accounts[j].Number
		})
		grp.Debit = shared.Round2(grp.Debit)
		grp.Credit = shared.Round2(grp.Credit)
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	result.TotalDebit = shared.Round2(result.TotalDebit)
	result.TotalCredit = shared.Round2(result.TotalCredit)
	result.Balanced = shared.Equal2(result.TotalDebit, result.TotalCredit)
	return result
}
