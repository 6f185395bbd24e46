package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rentvault/escrow-indexer/pkg/escrow"
	"github.com/rentvault/escrow-indexer/pkg/escrowstore"
)

// DisputeProjector applies dispute-lifecycle events to the store. All
// failures on this path are logged and swallowed; dispute events are
// redelivered by the chain source and steady-state races are benign.
type DisputeProjector struct {
	store  Store
	logger *zap.Logger
}

// NewDisputeProjector creates a new dispute projector
func NewDisputeProjector(store Store, logger *zap.Logger) *DisputeProjector {
	return &DisputeProjector{store: store, logger: logger}
}

// HandleDisputeRaised flips an ACTIVE deposit to DISPUTED and records the
// dispute in one transaction. The response deadline is the block timestamp
// plus the fixed response window.
func (p *DisputeProjector) HandleDisputeRaised(ctx context.Context, ev *DisputeRaisedEvent, blockTime time.Time) error {
	onChainID := ev.DepositId.String()
	p.logger.Info("Processing DisputeRaised",
		zap.String("deposit_id", onChainID),
		zap.String("beneficiary", ev.Beneficiary.Hex()))

	deposit, err := p.store.GetDepositByOnChainID(ctx, onChainID)
	if err != nil {
		if errors.Is(err, escrowstore.ErrDepositNotFound) {
			p.logger.Warn("Deposit not found, might be syncing", zap.String("deposit_id", onChainID))
			return nil
		}
		p.logger.Error("Failed to load deposit", zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}

	if deposit.Status != escrow.StatusActive {
		p.logger.Error("Invalid status for DisputeRaised",
			zap.String("deposit_id", onChainID),
			zap.String("expected", string(escrow.StatusActive)),
			zap.String("actual", string(deposit.Status)))
		return nil
	}

	dispute := &escrow.Dispute{
		ClaimedAmount:      decimal.NewFromBigInt(ev.ClaimedAmount, 0),
		EvidenceHash:       ev.EvidenceHash,
		DisputeStartTime:   blockTime,
		DisputeDeadline:    escrow.DisputeDeadline(blockTime),
		DepositorResponded: false,
	}

	ok, err := p.store.OpenDispute(ctx, onChainID, dispute)
	if err != nil {
		p.logger.Error("Failed to process DisputeRaised", zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}
	if !ok {
		// Another delivery flipped the status first
		p.logger.Error("Invalid status for DisputeRaised", zap.String("deposit_id", onChainID))
		return nil
	}

	p.logger.Info("DisputeRaised processed",
		zap.String("deposit_id", onChainID),
		zap.Uint64("block", ev.Raw.BlockNumber))
	return nil
}

// HandleDepositorResponded records the depositor's answer on the deposit's dispute.
func (p *DisputeProjector) HandleDepositorResponded(ctx context.Context, ev *DepositorRespondedEvent) error {
	onChainID := ev.DepositId.String()
	p.logger.Info("Processing DepositorResponded",
		zap.String("deposit_id", onChainID),
		zap.String("depositor", ev.Depositor.Hex()))

	if _, err := p.store.GetDepositByOnChainID(ctx, onChainID); err != nil {
		if errors.Is(err, escrowstore.ErrDepositNotFound) {
			p.logger.Warn("Deposit not found, might be syncing", zap.String("deposit_id", onChainID))
			return nil
		}
		p.logger.Error("Failed to load deposit", zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}

	ok, err := p.store.SetDisputeResponse(ctx, onChainID, ev.ResponseHash)
	if err != nil {
		p.logger.Error("Failed to process DepositorResponded", zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}
	if !ok {
		p.logger.Error("Dispute not found for deposit", zap.String("deposit_id", onChainID))
		return nil
	}

	p.logger.Info("DepositorResponded processed",
		zap.String("deposit_id", onChainID),
		zap.Uint64("block", ev.Raw.BlockNumber))
	return nil
}

// HandleResolverDecision resolves a DISPUTED deposit by third-party decision.
// The payout split is settled by the contract; only the status is tracked.
func (p *DisputeProjector) HandleResolverDecision(ctx context.Context, ev *ResolverDecisionEvent) error {
	return p.resolve(ctx, EventResolverDecision, ev.DepositId.String(), ev.Raw.BlockNumber)
}

// HandleDisputeTimeout resolves a DISPUTED deposit whose response window expired.
func (p *DisputeProjector) HandleDisputeTimeout(ctx context.Context, ev *DisputeTimeoutEvent) error {
	return p.resolve(ctx, EventDisputeTimeout, ev.DepositId.String(), ev.Raw.BlockNumber)
}

func (p *DisputeProjector) resolve(ctx context.Context, eventName, onChainID string, block uint64) error {
	p.logger.Info("Processing "+eventName, zap.String("deposit_id", onChainID))

	deposit, err := p.store.GetDepositByOnChainID(ctx, onChainID)
	if err != nil {
		if errors.Is(err, escrowstore.ErrDepositNotFound) {
			p.logger.Warn("Deposit not found, might be syncing", zap.String("deposit_id", onChainID))
			return nil
		}
		p.logger.Error("Failed to load deposit", zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}

	if deposit.Status != escrow.StatusDisputed {
		p.logger.Error("Invalid status for "+eventName,
			zap.String("deposit_id", onChainID),
			zap.String("expected", string(escrow.StatusDisputed)),
			zap.String("actual", string(deposit.Status)))
		return nil
	}

	ok, err := p.store.TransitionDepositStatus(ctx, onChainID, escrow.StatusDisputed, escrow.StatusResolved)
	if err != nil {
		p.logger.Error("Failed to process "+eventName, zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}
	if !ok {
		p.logger.Error("Invalid status for "+eventName, zap.String("deposit_id", onChainID))
		return nil
	}

	p.logger.Info(eventName+" processed",
		zap.String("deposit_id", onChainID),
		zap.Uint64("block", block))
	return nil
}
