package mappings

import "time"

// RevenueMapping links an invoice line category to a revenue account.
type RevenueMapping struct {
	Category  string    `json:"category"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpenseType classifies job expenses for COGS selection.
type ExpenseType string

const (
	ExpenseMaterials     ExpenseType = "materials"
	ExpenseLabor         ExpenseType = "labor"
	ExpenseSubcontractor ExpenseType = "subcontractor"
	ExpenseEquipment     ExpenseType = "equipment"
)
