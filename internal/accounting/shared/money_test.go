package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEqual2ComparesAtLedgerPrecision(t *testing.T) {
	require.True(t, Equal2(decimal.RequireFromString("10.004"), decimal.RequireFromString("10.00")))
	require.False(t, Equal2(decimal.RequireFromString("10.01"), decimal.RequireFromString("10.00")))
	require.True(t, Sum(decimal.NewFromInt(1), decimal.RequireFromString("0.5")).Equal(decimal.RequireFromString("1.5")))
}
