package indexer

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rentvault/escrow-indexer/pkg/escrow"
)

func raisedEvent(id int64, claimed int64, evidenceHash string) *DisputeRaisedEvent {
	return &DisputeRaisedEvent{
		DepositId:     big.NewInt(id),
		Beneficiary:   addrBeneficiary,
		ClaimedAmount: big.NewInt(claimed),
		EvidenceHash:  evidenceHash,
		Raw:           types.Log{BlockNumber: 102},
	}
}

func activeDeposit(t *testing.T, store *memStore, id int64) {
	t.Helper()
	ctx := context.Background()
	p := NewDepositProjector(store, zap.NewNop())
	require.NoError(t, p.HandleDepositCreated(ctx, createdEvent(id)))
	require.NoError(t, p.HandleDepositPaid(ctx, paidEvent(id)))
}

func TestHandleDisputeRaised(t *testing.T) {
	store := newMemStore()
	activeDeposit(t, store, 1)
	p := NewDisputeProjector(store, zap.NewNop())

	blockTime := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, p.HandleDisputeRaised(context.Background(), raisedEvent(1, 300_000, "ipfs://Qm1"), blockTime))

	deposit, err := store.GetDepositByOnChainID(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, escrow.StatusDisputed, deposit.Status)
	require.NotNil(t, deposit.Dispute)
	require.Equal(t, "300000", deposit.Dispute.ClaimedAmount.String())
	require.Equal(t, "ipfs://Qm1", deposit.Dispute.EvidenceHash)
	require.False(t, deposit.Dispute.DepositorResponded)
}

func TestHandleDisputeRaisedComputesDeadline(t *testing.T) {
	store := newMemStore()
	activeDeposit(t, store, 1)
	p := NewDisputeProjector(store, zap.NewNop())

	blockTime := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, p.HandleDisputeRaised(context.Background(), raisedEvent(1, 300_000, "ipfs://Qm1"), blockTime))

	deposit, err := store.GetDepositByOnChainID(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000+14*24*60*60), deposit.Dispute.DisputeDeadline.Unix())
}

func TestHandleDisputeRaisedRequiresActive(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	deposits := NewDepositProjector(store, zap.NewNop())
	require.NoError(t, deposits.HandleDepositCreated(ctx, createdEvent(1)))

	p := NewDisputeProjector(store, zap.NewNop())
	blockTime := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, p.HandleDisputeRaised(ctx, raisedEvent(1, 300_000, "ipfs://Qm1"), blockTime))

	deposit, err := store.GetDepositByOnChainID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, escrow.StatusWaitingForDeposit, deposit.Status)
	require.Nil(t, deposit.Dispute)
	require.Equal(t, 0, store.disputeCount())
}

func TestHandleDepositorResponded(t *testing.T) {
	store := newMemStore()
	activeDeposit(t, store, 1)
	p := NewDisputeProjector(store, zap.NewNop())
	ctx := context.Background()

	blockTime := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, p.HandleDisputeRaised(ctx, raisedEvent(1, 300_000, "ipfs://Qm1"), blockTime))

	ev := &DepositorRespondedEvent{
		DepositId:    big.NewInt(1),
		Depositor:    addrDepositor,
		ResponseHash: "ipfs://Qm2",
		Raw:          types.Log{BlockNumber: 103},
	}
	require.NoError(t, p.HandleDepositorResponded(ctx, ev))

	deposit, err := store.GetDepositByOnChainID(ctx, "1")
	require.NoError(t, err)
	require.True(t, deposit.Dispute.DepositorResponded)
	require.Equal(t, "ipfs://Qm2", deposit.Dispute.ResponseHash)
}

func TestHandleDepositorRespondedWithoutDispute(t *testing.T) {
	store := newMemStore()
	activeDeposit(t, store, 1)
	p := NewDisputeProjector(store, zap.NewNop())

	ev := &DepositorRespondedEvent{
		DepositId:    big.NewInt(1),
		Depositor:    addrDepositor,
		ResponseHash: "ipfs://Qm2",
	}
	require.NoError(t, p.HandleDepositorResponded(context.Background(), ev))
	require.Equal(t, 0, store.disputeCount())
}

func TestHandleResolverDecisionRequiresDisputed(t *testing.T) {
	store := newMemStore()
	activeDeposit(t, store, 1)
	p := NewDisputeProjector(store, zap.NewNop())
	ctx := context.Background()

	ev := &ResolverDecisionEvent{
		DepositId:           big.NewInt(1),
		AmountToDepositor:   big.NewInt(700_000),
		AmountToBeneficiary: big.NewInt(300_000),
	}

	// ACTIVE, not DISPUTED: no-op
	require.NoError(t, p.HandleResolverDecision(ctx, ev))
	deposit, err := store.GetDepositByOnChainID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, escrow.StatusActive, deposit.Status)
}

func TestHandleDisputeTimeout(t *testing.T) {
	store := newMemStore()
	activeDeposit(t, store, 1)
	p := NewDisputeProjector(store, zap.NewNop())
	ctx := context.Background()

	blockTime := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, p.HandleDisputeRaised(ctx, raisedEvent(1, 300_000, "ipfs://Qm1"), blockTime))

	ev := &DisputeTimeoutEvent{
		DepositId: big.NewInt(1),
		Depositor: addrDepositor,
		Amount:    big.NewInt(1_000_000),
	}
	require.NoError(t, p.HandleDisputeTimeout(ctx, ev))

	deposit, err := store.GetDepositByOnChainID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, escrow.StatusResolved, deposit.Status)
	// Dispute record is retained as audit trail
	require.NotNil(t, deposit.Dispute)
}

func TestDepositLifecycle(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	deposits := NewDepositProjector(store, zap.NewNop())
	disputes := NewDisputeProjector(store, zap.NewNop())

	require.NoError(t, deposits.HandleDepositCreated(ctx, createdEvent(1)))
	require.NoError(t, deposits.HandleDepositPaid(ctx, paidEvent(1)))

	blockTime := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, disputes.HandleDisputeRaised(ctx, raisedEvent(1, 300_000, "ipfs://Qm1"), blockTime))

	require.NoError(t, disputes.HandleDepositorResponded(ctx, &DepositorRespondedEvent{
		DepositId:    big.NewInt(1),
		Depositor:    addrDepositor,
		ResponseHash: "ipfs://Qm2",
	}))

	require.NoError(t, disputes.HandleResolverDecision(ctx, &ResolverDecisionEvent{
		DepositId:           big.NewInt(1),
		AmountToDepositor:   big.NewInt(700_000),
		AmountToBeneficiary: big.NewInt(300_000),
	}))

	deposit, err := store.GetDepositByOnChainID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, escrow.StatusResolved, deposit.Status)
	require.NotNil(t, deposit.Dispute)
	require.Equal(t, "300000", deposit.Dispute.ClaimedAmount.String())
	require.Equal(t, "ipfs://Qm2", deposit.Dispute.ResponseHash)
	require.True(t, deposit.Dispute.DepositorResponded)
}
