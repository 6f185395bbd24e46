package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rentvault/escrow-indexer/internal/metrics"
	"github.com/rentvault/escrow-indexer/pkg/escrow"
	"github.com/rentvault/escrow-indexer/pkg/escrowstore"
)

var contractAddr = common.HexToAddress("0x70bf1cA32Bf17bd05C014E80cAb4bf770a2c3E6B")

func startWatcher(t *testing.T, store *memStore, source *fakeLogSource) *Watcher {
	t.Helper()

	decoder, err := NewEventDecoder(contractAddr)
	require.NoError(t, err)

	w := NewWatcher(
		source,
		decoder,
		NewDepositProjector(store, zap.NewNop()),
		NewDisputeProjector(store, zap.NewNop()),
		zap.NewNop(),
	)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func waitForDeposit(t *testing.T, store *memStore, onChainID string, status escrow.DepositStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		deposit, err := store.GetDepositByOnChainID(context.Background(), onChainID)
		return err == nil && deposit.Status == status
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherProjectsDepositCreated(t *testing.T) {
	store := newMemStore()
	source := newFakeLogSource()
	startWatcher(t, store, source)

	source.emit(EventDepositCreated, []types.Log{
		depositCreatedLog(1, addrDepositor, addrBeneficiary, 1_000_000, 1_700_000_000, 1_705_000_000, 1_705_100_000),
	})

	waitForDeposit(t, store, "1", escrow.StatusWaitingForDeposit)
}

func TestWatcherProcessesFirstLogOfBatchOnly(t *testing.T) {
	store := newMemStore()
	source := newFakeLogSource()
	startWatcher(t, store, source)

	source.emit(EventDepositCreated, []types.Log{
		depositCreatedLog(1, addrDepositor, addrBeneficiary, 1_000_000, 1_700_000_000, 1_705_000_000, 1_705_100_000),
		depositCreatedLog(2, addrDepositor, addrBeneficiary, 2_000_000, 1_700_000_000, 1_705_000_000, 1_705_100_000),
	})

	waitForDeposit(t, store, "1", escrow.StatusWaitingForDeposit)

	_, err := store.GetDepositByOnChainID(context.Background(), "2")
	require.ErrorIs(t, err, escrowstore.ErrDepositNotFound)
}

func TestWatcherSubscriptionFailureIsIsolated(t *testing.T) {
	store := newMemStore()
	source := newFakeLogSource()
	startWatcher(t, store, source)

	source.fail(EventDepositPaid, errors.New("rpc connection reset"))

	// The DepositCreated subscription keeps working
	source.emit(EventDepositCreated, []types.Log{
		depositCreatedLog(1, addrDepositor, addrBeneficiary, 1_000_000, 1_700_000_000, 1_705_000_000, 1_705_100_000),
	})

	waitForDeposit(t, store, "1", escrow.StatusWaitingForDeposit)
}

func TestWatcherSkipsUndecodableLog(t *testing.T) {
	store := newMemStore()
	source := newFakeLogSource()
	startWatcher(t, store, source)

	// Topic count does not match the event signature
	source.emit(EventDepositCreated, []types.Log{{
		Topics:      []common.Hash{escrowABI.Events[EventDepositCreated].ID},
		BlockNumber: 90,
	}})

	source.emit(EventDepositCreated, []types.Log{
		depositCreatedLog(1, addrDepositor, addrBeneficiary, 1_000_000, 1_700_000_000, 1_705_000_000, 1_705_100_000),
	})

	waitForDeposit(t, store, "1", escrow.StatusWaitingForDeposit)
	require.Equal(t, 1, store.depositCount())
}

func TestWatcherDisputeRaisedUsesBlockTimestamp(t *testing.T) {
	store := newMemStore()
	source := newFakeLogSource()
	source.blockTSF = func(blockNumber uint64) (uint64, error) {
		require.Equal(t, uint64(102), blockNumber)
		return 1_700_000_000, nil
	}
	startWatcher(t, store, source)

	source.emit(EventDepositCreated, []types.Log{
		depositCreatedLog(1, addrDepositor, addrBeneficiary, 1_000_000, 1_700_000_000, 1_705_000_000, 1_705_100_000),
	})
	waitForDeposit(t, store, "1", escrow.StatusWaitingForDeposit)

	source.emit(EventDepositPaid, []types.Log{depositPaidLog(1, addrDepositor)})
	waitForDeposit(t, store, "1", escrow.StatusActive)

	source.emit(EventDisputeRaised, []types.Log{disputeRaisedLog(1, addrBeneficiary, 300_000, "ipfs://Qm1")})
	waitForDeposit(t, store, "1", escrow.StatusDisputed)

	deposit, err := store.GetDepositByOnChainID(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000), deposit.Dispute.DisputeStartTime.Unix())
	require.Equal(t, int64(1_700_000_000+14*24*60*60), deposit.Dispute.DisputeDeadline.Unix())
}

func TestWatcherDisputeRaisedTimestampFetchFailureCountsAsError(t *testing.T) {
	store := newMemStore()
	source := newFakeLogSource()
	source.blockTSF = func(uint64) (uint64, error) {
		return 0, errors.New("rpc timeout")
	}
	startWatcher(t, store, source)

	source.emit(EventDepositCreated, []types.Log{
		depositCreatedLog(1, addrDepositor, addrBeneficiary, 1_000_000, 1_700_000_000, 1_705_000_000, 1_705_100_000),
	})
	waitForDeposit(t, store, "1", escrow.StatusWaitingForDeposit)

	source.emit(EventDepositPaid, []types.Log{depositPaidLog(1, addrDepositor)})
	waitForDeposit(t, store, "1", escrow.StatusActive)

	errCounter := metrics.EventsProcessed.WithLabelValues(EventDisputeRaised, "error")
	before := testutil.ToFloat64(errCounter)

	source.emit(EventDisputeRaised, []types.Log{disputeRaisedLog(1, addrBeneficiary, 300_000, "ipfs://Qm1")})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(errCounter) == before+1
	}, 2*time.Second, 10*time.Millisecond)

	// The event is dropped without touching the deposit
	require.Equal(t, 0, store.disputeCount())
	deposit, err := store.GetDepositByOnChainID(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, escrow.StatusActive, deposit.Status)
}
