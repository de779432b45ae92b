package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// NormalBalance is the side that increases an account.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// Account models a chart of accounts node.
type Account struct {
	ID            int64         `json:"id"`
	Number        string        `json:"account_number"`
	Name          string        `json:"name"`
	Type          AccountType   `json:"account_type"`
	NormalBalance NormalBalance `json:"normal_balance"`
	IsDeleted     bool          `json:"is_deleted"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// SeedAccount describes a chart entry created by Seed.
type SeedAccount struct {
	Number        string
	Name          string
	Type          AccountType
	NormalBalance NormalBalance
}
