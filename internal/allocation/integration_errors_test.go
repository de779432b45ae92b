package allocation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	accounting "github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

func TestWrapLedgerPostErrorMessages(t *testing.T) {
	err := wrapLedgerPostError(fmt.Errorf("line 0: %w", accounting.ErrAccountNotFound))
	require.True(t, err.Retryable)
	require.Contains(t, err.Message, "missing or deleted ledger account")
	require.ErrorIs(t, err, accounting.ErrAccountNotFound)

	err = wrapLedgerPostError(errors.New("connection reset"))
	require.False(t, err.Retryable)
	require.Contains(t, err.Message, "connection reset")

	require.Nil(t, wrapLedgerPostError(nil))
}
