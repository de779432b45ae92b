package mappings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
)

func TestCOGSRoleByExpenseType(t *testing.T) {
	cases := map[string]accounts.Role{
		"materials":     accounts.RoleCOGS,
		" Labor ":       accounts.RoleCOGSLabor,
		"subcontractor": accounts.RoleCOGSSubcontractor,
		"EQUIPMENT":     accounts.RoleCOGSEquipment,
		"permits":       accounts.RoleCOGS,
		"":              accounts.RoleCOGS,
	}
	for input, want := range cases {
		require.Equal(t, want, COGSRole(input), input)
	}
	require.Equal(t, "5030", COGSRole("equipment").Number())
}
