package escrow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDisputeDeadline(t *testing.T) {
	start := time.Unix(1_700_000_000, 0).UTC()
	deadline := DisputeDeadline(start)
	require.Equal(t, int64(1_700_000_000+14*24*60*60), deadline.Unix())
}

func TestTerminalStatuses(t *testing.T) {
	require.True(t, StatusResolved.Terminal())
	require.True(t, StatusCompleted.Terminal())
	require.False(t, StatusWaitingForDeposit.Terminal())
	require.False(t, StatusActive.Terminal())
	require.False(t, StatusDisputed.Terminal())
}

func TestStatusValid(t *testing.T) {
	for _, status := range []DepositStatus{
		StatusWaitingForDeposit, StatusActive, StatusDisputed, StatusResolved, StatusCompleted,
	} {
		require.True(t, status.Valid(), status)
	}
	require.False(t, DepositStatus("").Valid())
	require.False(t, DepositStatus("PENDING").Valid())
}
