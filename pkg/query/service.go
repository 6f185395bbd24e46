// Package query exposes the projected deposit state over a read-only API.
package query

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "github.com/rentvault/escrow-indexer/pkg/app/errors"
	"github.com/rentvault/escrow-indexer/pkg/escrow"
	"github.com/rentvault/escrow-indexer/pkg/escrowstore"
)

// ReadStore defines the store reads the query service needs.
type ReadStore interface {
	ListDeposits(ctx context.Context, opts ...escrowstore.QueryOption) ([]*escrow.Deposit, error)
	GetDepositByOnChainID(ctx context.Context, onChainID string) (*escrow.Deposit, error)
	ListDisputes(ctx context.Context) ([]*escrow.Dispute, error)
	GetUserByWalletAddress(ctx context.Context, walletAddress string) (*escrow.User, error)
}

// Service serves read-only queries over the projected state.
type Service struct {
	store  ReadStore
	logger *zap.Logger
}

// NewService creates a new query service
func NewService(store ReadStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// validOnChainID reports whether s is a non-empty decimal integer.
func validOnChainID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ListDeposits returns all deposits with their dispute joined, newest first.
// A non-empty statusFilter restricts the listing to one lifecycle status.
func (s *Service) ListDeposits(ctx context.Context, statusFilter string) ([]*escrow.Deposit, error) {
	var opts []escrowstore.QueryOption
	if statusFilter != "" {
		status := escrow.DepositStatus(statusFilter)
		if !status.Valid() {
			return nil, apperrors.BadRequestError(nil, "invalid status filter")
		}
		opts = append(opts, escrowstore.WithStatus(status))
	}

	deposits, err := s.store.ListDeposits(ctx, opts...)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return deposits, nil
}

// GetDepositsByDepositor returns deposits where the address is the depositor.
func (s *Service) GetDepositsByDepositor(ctx context.Context, address string) ([]*escrow.Deposit, error) {
	deposits, err := s.store.ListDeposits(ctx, escrowstore.WithDepositor(address))
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return deposits, nil
}

// GetDepositsByBeneficiary returns deposits where the address is the beneficiary.
func (s *Service) GetDepositsByBeneficiary(ctx context.Context, address string) ([]*escrow.Deposit, error) {
	deposits, err := s.store.ListDeposits(ctx, escrowstore.WithBeneficiary(address))
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return deposits, nil
}

// GetDeposit returns a single deposit with its dispute.
func (s *Service) GetDeposit(ctx context.Context, onChainID string) (*escrow.Deposit, error) {
	if !validOnChainID(onChainID) {
		return nil, apperrors.BadRequestError(nil, "invalid deposit id")
	}

	deposit, err := s.store.GetDepositByOnChainID(ctx, onChainID)
	if err != nil {
		if errors.Is(err, escrowstore.ErrDepositNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "deposit not found")
		}
		return nil, apperrors.GeneralError(err)
	}
	return deposit, nil
}

// ListDisputes returns all disputes with their deposit joined, newest first.
func (s *Service) ListDisputes(ctx context.Context) ([]*escrow.Dispute, error) {
	disputes, err := s.store.ListDisputes(ctx)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return disputes, nil
}

// GetDisputeForDeposit returns the dispute raised against the deposit with
// the given on-chain id, or nil when the deposit has none.
func (s *Service) GetDisputeForDeposit(ctx context.Context, onChainID string) (*escrow.Dispute, error) {
	if !validOnChainID(onChainID) {
		return nil, apperrors.BadRequestError(nil, "invalid deposit id")
	}

	deposit, err := s.store.GetDepositByOnChainID(ctx, onChainID)
	if err != nil {
		if errors.Is(err, escrowstore.ErrDepositNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "deposit not found")
		}
		return nil, apperrors.GeneralError(err)
	}
	return deposit.Dispute, nil
}

// GetUser returns the user record for a wallet address.
func (s *Service) GetUser(ctx context.Context, address string) (*escrow.User, error) {
	user, err := s.store.GetUserByWalletAddress(ctx, address)
	if err != nil {
		if errors.Is(err, escrowstore.ErrUserNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "user not found")
		}
		return nil, apperrors.GeneralError(err)
	}
	return user, nil
}

// GetUserDeposits returns every deposit the address participates in,
// as depositor or beneficiary.
func (s *Service) GetUserDeposits(ctx context.Context, address string) ([]*escrow.Deposit, error) {
	if _, err := s.GetUser(ctx, address); err != nil {
		return nil, err
	}

	deposits, err := s.store.ListDeposits(ctx, escrowstore.WithParticipant(address))
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return deposits, nil
}
