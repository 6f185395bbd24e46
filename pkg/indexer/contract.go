package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventDecoder unpacks raw contract logs into typed event records.
type EventDecoder struct {
	contract *bind.BoundContract
}

// NewEventDecoder parses the escrow contract ABI and binds it to the
// contract address for log decoding.
func NewEventDecoder(contractAddress common.Address) (*EventDecoder, error) {
	parsed, err := abi.JSON(strings.NewReader(DepositEscrowABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	return &EventDecoder{
		contract: bind.NewBoundContract(contractAddress, parsed, nil, nil, nil),
	}, nil
}

func (d *EventDecoder) unpack(out any, eventName string, log types.Log) error {
	if err := d.contract.UnpackLog(out, eventName, log); err != nil {
		return fmt.Errorf("failed to decode %s log: %w", eventName, err)
	}
	return nil
}

// DecodeDepositCreated decodes a DepositCreated log.
func (d *EventDecoder) DecodeDepositCreated(log types.Log) (*DepositCreatedEvent, error) {
	ev := new(DepositCreatedEvent)
	if err := d.unpack(ev, EventDepositCreated, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

// DecodeDepositPaid decodes a DepositPaid log.
func (d *EventDecoder) DecodeDepositPaid(log types.Log) (*DepositPaidEvent, error) {
	ev := new(DepositPaidEvent)
	if err := d.unpack(ev, EventDepositPaid, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

// DecodeCleanExitConfirmed decodes a CleanExitConfirmed log.
func (d *EventDecoder) DecodeCleanExitConfirmed(log types.Log) (*CleanExitConfirmedEvent, error) {
	ev := new(CleanExitConfirmedEvent)
	if err := d.unpack(ev, EventCleanExitConfirmed, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

// DecodeAutoReleaseExecuted decodes an AutoReleaseExecuted log.
func (d *EventDecoder) DecodeAutoReleaseExecuted(log types.Log) (*AutoReleaseExecutedEvent, error) {
	ev := new(AutoReleaseExecutedEvent)
	if err := d.unpack(ev, EventAutoReleaseExecuted, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

// DecodeDisputeRaised decodes a DisputeRaised log.
func (d *EventDecoder) DecodeDisputeRaised(log types.Log) (*DisputeRaisedEvent, error) {
	ev := new(DisputeRaisedEvent)
	if err := d.unpack(ev, EventDisputeRaised, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

// DecodeDepositorResponded decodes a DepositorResponded log.
func (d *EventDecoder) DecodeDepositorResponded(log types.Log) (*DepositorRespondedEvent, error) {
	ev := new(DepositorRespondedEvent)
	if err := d.unpack(ev, EventDepositorResponded, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

// DecodeResolverDecision decodes a ResolverDecision log.
func (d *EventDecoder) DecodeResolverDecision(log types.Log) (*ResolverDecisionEvent, error) {
	ev := new(ResolverDecisionEvent)
	if err := d.unpack(ev, EventResolverDecision, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

// DecodeDisputeTimeout decodes a DisputeTimeout log.
func (d *EventDecoder) DecodeDisputeTimeout(log types.Log) (*DisputeTimeoutEvent, error) {
	ev := new(DisputeTimeoutEvent)
	if err := d.unpack(ev, EventDisputeTimeout, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}
