// Package indexer projects the escrow contract's event stream into the
// deposit read model.
package indexer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event names emitted by the deposit escrow contract.
const (
	EventDepositCreated      = "DepositCreated"
	EventDepositPaid         = "DepositPaid"
	EventCleanExitConfirmed  = "CleanExitConfirmed"
	EventAutoReleaseExecuted = "AutoReleaseExecuted"
	EventDisputeRaised       = "DisputeRaised"
	EventDepositorResponded  = "DepositorResponded"
	EventResolverDecision    = "ResolverDecision"
	EventDisputeTimeout      = "DisputeTimeout"
)

// EventNames lists every contract event the watcher subscribes to.
var EventNames = []string{
	EventDepositCreated,
	EventDepositPaid,
	EventCleanExitConfirmed,
	EventAutoReleaseExecuted,
	EventDisputeRaised,
	EventDepositorResponded,
	EventResolverDecision,
	EventDisputeTimeout,
}

// DepositEscrowABI is the event surface of the deposit escrow contract.
const DepositEscrowABI = `[
  {"type":"event","name":"DepositCreated","inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"depositor","type":"address","indexed":true},
    {"name":"beneficiary","type":"address","indexed":true},
    {"name":"depositAmount","type":"uint256","indexed":false},
    {"name":"periodStart","type":"uint256","indexed":false},
    {"name":"periodEnd","type":"uint256","indexed":false},
    {"name":"autoReleaseTime","type":"uint256","indexed":false}]},
  {"type":"event","name":"DepositPaid","inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"depositor","type":"address","indexed":true}]},
  {"type":"event","name":"CleanExitConfirmed","inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"beneficiary","type":"address","indexed":true}]},
  {"type":"event","name":"AutoReleaseExecuted","inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"depositor","type":"address","indexed":true}]},
  {"type":"event","name":"DisputeRaised","inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"beneficiary","type":"address","indexed":true},
    {"name":"claimedAmount","type":"uint256","indexed":false},
    {"name":"evidenceHash","type":"string","indexed":false}]},
  {"type":"event","name":"DepositorResponded","inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"depositor","type":"address","indexed":true},
    {"name":"responseHash","type":"string","indexed":false}]},
  {"type":"event","name":"ResolverDecision","inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"resolver","type":"address","indexed":true},
    {"name":"amountToDepositor","type":"uint256","indexed":false},
    {"name":"amountToBeneficiary","type":"uint256","indexed":false}]},
  {"type":"event","name":"DisputeTimeout","inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"depositor","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]}
]`

// DepositCreatedEvent announces a new escrow deposit.
type DepositCreatedEvent struct {
	DepositId       *big.Int
	Depositor       common.Address
	Beneficiary     common.Address
	DepositAmount   *big.Int
	PeriodStart     *big.Int
	PeriodEnd       *big.Int
	AutoReleaseTime *big.Int
	Raw             types.Log
}

// DepositPaidEvent announces the depositor funded the escrow.
type DepositPaidEvent struct {
	DepositId *big.Int
	Depositor common.Address
	Raw       types.Log
}

// CleanExitConfirmedEvent announces a beneficiary-confirmed release.
type CleanExitConfirmedEvent struct {
	DepositId   *big.Int
	Beneficiary common.Address
	Raw         types.Log
}

// AutoReleaseExecutedEvent announces a time-based release.
type AutoReleaseExecutedEvent struct {
	DepositId *big.Int
	Depositor common.Address
	Raw       types.Log
}

// DisputeRaisedEvent announces a claim against an active deposit.
type DisputeRaisedEvent struct {
	DepositId     *big.Int
	Beneficiary   common.Address
	ClaimedAmount *big.Int
	EvidenceHash  string
	Raw           types.Log
}

// DepositorRespondedEvent announces the depositor answered a dispute.
type DepositorRespondedEvent struct {
	DepositId    *big.Int
	Depositor    common.Address
	ResponseHash string
	Raw          types.Log
}

// ResolverDecisionEvent announces a third-party dispute resolution.
type ResolverDecisionEvent struct {
	DepositId           *big.Int
	Resolver            common.Address
	AmountToDepositor   *big.Int
	AmountToBeneficiary *big.Int
	Raw                 types.Log
}

// DisputeTimeoutEvent announces a dispute resolved by deadline expiry.
type DisputeTimeoutEvent struct {
	DepositId *big.Int
	Depositor common.Address
	Amount    *big.Int
	Raw       types.Log
}
