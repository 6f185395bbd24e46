// Package escrow holds the domain model projected from the deposit escrow
// contract's event stream.
package escrow

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositStatus is the lifecycle state of an escrow deposit.
type DepositStatus string

const (
	StatusWaitingForDeposit DepositStatus = "WAITING_FOR_DEPOSIT"
	StatusActive            DepositStatus = "ACTIVE"
	StatusDisputed          DepositStatus = "DISPUTED"
	StatusResolved          DepositStatus = "RESOLVED"
	StatusCompleted         DepositStatus = "COMPLETED"
)

// Terminal reports whether the status has no outbound transition.
func (s DepositStatus) Terminal() bool {
	return s == StatusResolved || s == StatusCompleted
}

// Valid reports whether s is a known lifecycle status.
func (s DepositStatus) Valid() bool {
	switch s {
	case StatusWaitingForDeposit, StatusActive, StatusDisputed, StatusResolved, StatusCompleted:
		return true
	}
	return false
}

// DisputeResponseWindow is the fixed period a depositor has to respond to a
// raised dispute, measured from the block timestamp of the DisputeRaised event.
const DisputeResponseWindow = 14 * 24 * time.Hour

// DisputeDeadline computes the response deadline for a dispute started at the
// given time.
func DisputeDeadline(start time.Time) time.Time {
	return start.Add(DisputeResponseWindow)
}

// User is a wallet address seen as depositor or beneficiary in any event.
// Users are created lazily and never mutated.
type User struct {
	ID            int64     `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
}

// Deposit is the read-model row for one on-chain escrow deposit.
// OnChainID is the chain-assigned identifier, kept as a decimal string to
// preserve 256-bit integer fidelity.
type Deposit struct {
	ID                 int64           `json:"id"`
	OnChainID          string          `json:"on_chain_id"`
	DepositorAddress   string          `json:"depositor_address"`
	BeneficiaryAddress string          `json:"beneficiary_address"`
	DepositAmount      decimal.Decimal `json:"deposit_amount"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	AutoReleaseTime    time.Time       `json:"auto_release_time"`
	Status             DepositStatus   `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Dispute *Dispute `json:"dispute,omitempty"`
}

// Dispute is the claim raised against a deposit. At most one per deposit;
// retained as an audit trail after resolution.
type Dispute struct {
	ID                 int64           `json:"id"`
	DepositID          int64           `json:"deposit_id"`
	ClaimedAmount      decimal.Decimal `json:"claimed_amount"`
	EvidenceHash       string          `json:"evidence_hash"`
	DisputeStartTime   time.Time       `json:"dispute_start_time"`
	DisputeDeadline    time.Time       `json:"dispute_deadline"`
	DepositorResponded bool            `json:"depositor_responded"`
	ResponseHash       string          `json:"response_hash,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Deposit *Deposit `json:"deposit,omitempty"`
}
