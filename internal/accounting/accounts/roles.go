package accounts

// Role names a fixed account the posting recipes depend on.
type Role int

const (
	RoleCash Role = iota + 1
	RoleAccountsReceivable
	RoleAccountsPayable
	RoleSalesTaxPayable
	RoleRevenue
	RoleCOGS
	RoleCOGSLabor
	RoleCOGSSubcontractor
	RoleCOGSEquipment
	RolePayrollExpense
	RoleOtherExpense
)

type roleSpec struct {
	number        string
	name          string
	accountType   AccountType
	normalBalance NormalBalance
}

var roleSpecs = map[Role]roleSpec{
	RoleCash:               {"1000", "Cash", AccountTypeAsset, NormalDebit},
	RoleAccountsReceivable: {"1100", "Accounts Receivable", AccountTypeAsset, NormalDebit},
	RoleAccountsPayable:    {"2000", "Accounts Payable", AccountTypeLiability, NormalCredit},
	RoleSalesTaxPayable:    {"2300", "Sales Tax Payable", AccountTypeLiability, NormalCredit},
	RoleRevenue:            {"4000", "Service Revenue", AccountTypeRevenue, NormalCredit},
	RoleCOGS:               {"5000", "Cost of Goods Sold - Materials", AccountTypeExpense, NormalDebit},
	RoleCOGSLabor:          {"5010", "Cost of Goods Sold - Labor", AccountTypeExpense, NormalDebit},
	RoleCOGSSubcontractor:  {"5020", "Cost of Goods Sold - Subcontractors", AccountTypeExpense, NormalDebit},
	RoleCOGSEquipment:      {"5030", "Cost of Goods Sold - Equipment", AccountTypeExpense, NormalDebit},
	RolePayrollExpense:     {"5100", "Payroll Expense", AccountTypeExpense, NormalDebit},
	RoleOtherExpense:       {"7000", "Other Expense", AccountTypeExpense, NormalDebit},
}

// AllRoles lists every role in a stable order.
func AllRoles() []Role {
	return []Role{
		RoleCash, RoleAccountsReceivable, RoleAccountsPayable, RoleSalesTaxPayable, RoleRevenue,
		RoleCOGS, RoleCOGSLabor, RoleCOGSSubcontractor, RoleCOGSEquipment, RolePayrollExpense,
		RoleOtherExpense,
	}
}

// Number returns the account number bound to the role.
func (r Role) Number() string {
	return roleSpecs[r].number
}

func (r Role) String() string {
	spec, ok := roleSpecs[r]
	if !ok {
		return "unknown"
	}
	return spec.number + " " + spec.name
}

// DefaultChart returns the minimum chart required before any posting succeeds.
func DefaultChart() []SeedAccount {
	out := make([]SeedAccount, 0, len(roleSpecs))
	for _, role := range AllRoles() {
		spec := roleSpecs[role]
		out = append(out, SeedAccount{Number: spec.number, Name: spec.name, Type: spec.accountType, NormalBalance: spec.normalBalance})
	}
	return out
}
