package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rentvault/escrow-indexer/pkg/escrow"
	"github.com/rentvault/escrow-indexer/pkg/escrowstore"
)

// Store defines the persistence operations the projectors need.
type Store interface {
	UpsertUser(ctx context.Context, walletAddress string) error
	CreateDeposit(ctx context.Context, deposit *escrow.Deposit) error
	GetDepositByOnChainID(ctx context.Context, onChainID string) (*escrow.Deposit, error)
	UpdateDepositStatus(ctx context.Context, onChainID string, to escrow.DepositStatus) error
	TransitionDepositStatus(ctx context.Context, onChainID string, from, to escrow.DepositStatus) (bool, error)
	OpenDispute(ctx context.Context, onChainID string, dispute *escrow.Dispute) (bool, error)
	SetDisputeResponse(ctx context.Context, onChainID string, responseHash string) (bool, error)
}

// DepositProjector applies deposit-lifecycle events to the store,
// enforcing the deposit state machine.
type DepositProjector struct {
	store  Store
	logger *zap.Logger
}

// NewDepositProjector creates a new deposit projector
func NewDepositProjector(store Store, logger *zap.Logger) *DepositProjector {
	return &DepositProjector{store: store, logger: logger}
}

func unixTime(v *big.Int) time.Time {
	return time.Unix(v.Int64(), 0).UTC()
}

// HandleDepositCreated records a new deposit in WAITING_FOR_DEPOSIT and the
// participating wallet addresses. Redelivery of an already-indexed deposit is
// a no-op; any other store failure propagates and aborts this event only.
func (p *DepositProjector) HandleDepositCreated(ctx context.Context, ev *DepositCreatedEvent) error {
	onChainID := ev.DepositId.String()
	p.logger.Info("Processing DepositCreated", zap.String("deposit_id", onChainID))

	if err := p.store.UpsertUser(ctx, ev.Depositor.Hex()); err != nil {
		p.logger.Error("Failed to upsert depositor", zap.String("deposit_id", onChainID), zap.Error(err))
		return fmt.Errorf("failed to upsert depositor: %w", err)
	}
	if err := p.store.UpsertUser(ctx, ev.Beneficiary.Hex()); err != nil {
		p.logger.Error("Failed to upsert beneficiary", zap.String("deposit_id", onChainID), zap.Error(err))
		return fmt.Errorf("failed to upsert beneficiary: %w", err)
	}

	deposit := &escrow.Deposit{
		OnChainID:          onChainID,
		DepositorAddress:   ev.Depositor.Hex(),
		BeneficiaryAddress: ev.Beneficiary.Hex(),
		DepositAmount:      decimal.NewFromBigInt(ev.DepositAmount, 0),
		PeriodStart:        unixTime(ev.PeriodStart),
		PeriodEnd:          unixTime(ev.PeriodEnd),
		AutoReleaseTime:    unixTime(ev.AutoReleaseTime),
		Status:             escrow.StatusWaitingForDeposit,
	}

	err := p.store.CreateDeposit(ctx, deposit)
	if errors.Is(err, escrowstore.ErrDepositExists) {
		// Redelivered event, the row is already there
		p.logger.Debug("Deposit already indexed", zap.String("deposit_id", onChainID))
		return nil
	}
	if err != nil {
		p.logger.Error("Failed to create deposit", zap.String("deposit_id", onChainID), zap.Error(err))
		return err
	}

	p.logger.Info("DepositCreated processed",
		zap.String("deposit_id", onChainID),
		zap.Uint64("block", ev.Raw.BlockNumber))
	return nil
}

// HandleDepositPaid marks the deposit ACTIVE. A missing deposit is assumed
// not-yet-synced and skipped with a warning.
func (p *DepositProjector) HandleDepositPaid(ctx context.Context, ev *DepositPaidEvent) error {
	onChainID := ev.DepositId.String()
	p.logger.Info("Processing DepositPaid", zap.String("deposit_id", onChainID))

	if _, err := p.store.GetDepositByOnChainID(ctx, onChainID); err != nil {
		if errors.Is(err, escrowstore.ErrDepositNotFound) {
			p.logger.Warn("Deposit not found, might be syncing", zap.String("deposit_id", onChainID))
			return nil
		}
		p.logger.Error("Failed to load deposit", zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}

	if err := p.store.UpdateDepositStatus(ctx, onChainID, escrow.StatusActive); err != nil {
		p.logger.Error("Failed to process DepositPaid", zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}

	p.logger.Info("DepositPaid processed",
		zap.String("deposit_id", onChainID),
		zap.Uint64("block", ev.Raw.BlockNumber))
	return nil
}

// HandleCleanExitConfirmed completes an ACTIVE deposit on beneficiary-confirmed release.
func (p *DepositProjector) HandleCleanExitConfirmed(ctx context.Context, ev *CleanExitConfirmedEvent) error {
	return p.complete(ctx, EventCleanExitConfirmed, ev.DepositId.String(), ev.Raw.BlockNumber)
}

// HandleAutoReleaseExecuted completes an ACTIVE deposit on time-based release.
func (p *DepositProjector) HandleAutoReleaseExecuted(ctx context.Context, ev *AutoReleaseExecutedEvent) error {
	return p.complete(ctx, EventAutoReleaseExecuted, ev.DepositId.String(), ev.Raw.BlockNumber)
}

func (p *DepositProjector) complete(ctx context.Context, eventName, onChainID string, block uint64) error {
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

	if deposit.Status != escrow.StatusActive {
		p.logger.Error("Invalid status for "+eventName,
			zap.String("deposit_id", onChainID),
			zap.String("expected", string(escrow.StatusActive)),
			zap.String("actual", string(deposit.Status)))
		return nil
	}

	ok, err := p.store.TransitionDepositStatus(ctx, onChainID, escrow.StatusActive, escrow.StatusCompleted)
	if err != nil {
		p.logger.Error("Failed to process "+eventName, zap.String("deposit_id", onChainID), zap.Error(err))
		return nil
	}
	if !ok {
		// Status moved between the read and the conditional update
		p.logger.Error("Invalid status for "+eventName, zap.String("deposit_id", onChainID))
		return nil
	}

	p.logger.Info(eventName+" processed",
		zap.String("deposit_id", onChainID),
		zap.Uint64("block", block))
	return nil
}
