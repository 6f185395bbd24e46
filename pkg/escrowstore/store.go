// Package escrowstore persists the deposit read model projected from the
// escrow contract's event stream.
package escrowstore

import (
	"context"
	"errors"

	"github.com/rentvault/escrow-indexer/pkg/escrow"
)

// ErrDepositNotFound is returned when a deposit lookup finds no matching record.
var ErrDepositNotFound = errors.New("deposit not found")

// ErrDepositExists is returned by CreateDeposit when a deposit with the same
// on-chain id is already present. Callers treating event redelivery as normal
// swallow it.
var ErrDepositExists = errors.New("deposit already exists")

// ErrDisputeNotFound is returned when a dispute lookup finds no matching record.
var ErrDisputeNotFound = errors.New("dispute not found")

// ErrUserNotFound is returned when a user lookup finds no matching record.
var ErrUserNotFound = errors.New("user not found")

// Store defines the persistence operations used by the projection engine and
// the query API.
type Store interface {
	// UpsertUser records a wallet address if it has not been seen before.
	UpsertUser(ctx context.Context, walletAddress string) error
	GetUserByWalletAddress(ctx context.Context, walletAddress string) (*escrow.User, error)

	// CreateDeposit inserts a deposit if no row with the same on-chain id
	// exists, returning ErrDepositExists otherwise.
	CreateDeposit(ctx context.Context, deposit *escrow.Deposit) error
	GetDepositByOnChainID(ctx context.Context, onChainID string) (*escrow.Deposit, error)
	ListDeposits(ctx context.Context, opts ...QueryOption) ([]*escrow.Deposit, error)

	// UpdateDepositStatus sets the status unconditionally.
	UpdateDepositStatus(ctx context.Context, onChainID string, to escrow.DepositStatus) error
	// TransitionDepositStatus sets the status only when the row currently
	// holds the expected one. Returns false when the precondition did not hold.
	TransitionDepositStatus(ctx context.Context, onChainID string, from, to escrow.DepositStatus) (bool, error)

	// OpenDispute flips the deposit from ACTIVE to DISPUTED and inserts the
	// dispute row in a single transaction. Returns false without inserting
	// when the deposit was not ACTIVE.
	OpenDispute(ctx context.Context, onChainID string, dispute *escrow.Dispute) (bool, error)
	GetDisputeByDepositID(ctx context.Context, depositID int64) (*escrow.Dispute, error)
	ListDisputes(ctx context.Context) ([]*escrow.Dispute, error)
	// SetDisputeResponse records the depositor's response on the deposit's
	// dispute. Returns false when no dispute row exists.
	SetDisputeResponse(ctx context.Context, onChainID string, responseHash string) (bool, error)
}

// QueryOptions defines filters for deposit listings.
type QueryOptions struct {
	Depositor   *string
	Beneficiary *string
	Participant *string
	Status      *escrow.DepositStatus
}

// QueryOption is a functional option for deposit listings.
type QueryOption func(*QueryOptions)

// WithDepositor filters deposits by depositor address (case-insensitive).
func WithDepositor(address string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Depositor = &address
	}
}

// WithBeneficiary filters deposits by beneficiary address (case-insensitive).
func WithBeneficiary(address string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Beneficiary = &address
	}
}

// WithParticipant filters deposits where the address appears as depositor or
// beneficiary (case-insensitive).
func WithParticipant(address string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Participant = &address
	}
}

// WithStatus filters deposits by lifecycle status.
func WithStatus(status escrow.DepositStatus) QueryOption {
	return func(opts *QueryOptions) {
		opts.Status = &status
	}
}
