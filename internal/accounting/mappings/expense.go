package mappings

import (
	"strings"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
)

// COGSRole selects the cost account for a job expense type. Unknown types
// land on the general materials account.
func COGSRole(expenseType string) accounts.Role {
	switch ExpenseType(strings.ToLower(strings.TrimSpace(expenseType))) {
	case ExpenseLabor:
		return accounts.RoleCOGSLabor
	case ExpenseSubcontractor:
		return accounts.RoleCOGSSubcontractor
	case ExpenseEquipment:
		return accounts.RoleCOGSEquipment
	default:
		return accounts.RoleCOGS
	}
}

// NormalizeCategory canonicalises a revenue category key.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
