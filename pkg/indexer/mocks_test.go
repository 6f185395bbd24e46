package indexer

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rentvault/escrow-indexer/pkg/escrow"
	"github.com/rentvault/escrow-indexer/pkg/escrowstore"
)

// memStore is an in-memory Store with the same row-level semantics as the
// postgres implementation. Func fields, when set, override an operation to
// simulate failures.
type memStore struct {
	mu       sync.Mutex
	users    map[string]struct{}
	deposits map[string]*escrow.Deposit
	disputes map[string]*escrow.Dispute
	nextID   int64

	CreateDepositFunc func(ctx context.Context, deposit *escrow.Deposit) error
	OpenDisputeFunc   func(ctx context.Context, onChainID string, dispute *escrow.Dispute) (bool, error)
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]struct{}),
		deposits: make(map[string]*escrow.Deposit),
		disputes: make(map[string]*escrow.Dispute),
	}
}

func (s *memStore) UpsertUser(_ context.Context, walletAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(walletAddress)] = struct{}{}
	return nil
}

func (s *memStore) CreateDeposit(ctx context.Context, deposit *escrow.Deposit) error {
	if s.CreateDepositFunc != nil {
		return s.CreateDepositFunc(ctx, deposit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deposits[deposit.OnChainID]; ok {
		return escrowstore.ErrDepositExists
	}
	s.nextID++
	stored := *deposit
	stored.ID = s.nextID
	stored.CreatedAt = time.Now().UTC()
	s.deposits[deposit.OnChainID] = &stored
	return nil
}

func (s *memStore) GetDepositByOnChainID(_ context.Context, onChainID string) (*escrow.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok := s.deposits[onChainID]
	if !ok {
		return nil, escrowstore.ErrDepositNotFound
	}
	out := *deposit
	if dispute, ok := s.disputes[onChainID]; ok {
		d := *dispute
		out.Dispute = &d
	}
	return &out, nil
}

func (s *memStore) UpdateDepositStatus(_ context.Context, onChainID string, to escrow.DepositStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok := s.deposits[onChainID]
	if !ok {
		return fmt.Errorf("deposit %s not found", onChainID)
	}
	deposit.Status = to
	return nil
}

func (s *memStore) TransitionDepositStatus(_ context.Context, onChainID string, from, to escrow.DepositStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok := s.deposits[onChainID]
	if !ok || deposit.Status != from {
		return false, nil
	}
	deposit.Status = to
	return true, nil
}

func (s *memStore) OpenDispute(ctx context.Context, onChainID string, dispute *escrow.Dispute) (bool, error) {
	if s.OpenDisputeFunc != nil {
		return s.OpenDisputeFunc(ctx, onChainID, dispute)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok := s.deposits[onChainID]
	if !ok || deposit.Status != escrow.StatusActive {
		return false, nil
	}
	deposit.Status = escrow.StatusDisputed
	s.nextID++
	stored := *dispute
	stored.ID = s.nextID
	stored.DepositID = deposit.ID
	s.disputes[onChainID] = &stored
	return true, nil
}

func (s *memStore) SetDisputeResponse(_ context.Context, onChainID string, responseHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dispute, ok := s.disputes[onChainID]
	if !ok {
		return false, nil
	}
	dispute.ResponseHash = responseHash
	dispute.DepositorResponded = true
	return true, nil
}

func (s *memStore) depositCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deposits)
}

func (s *memStore) disputeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.disputes)
}

// fakeSubscription is a test double for a log source subscription.
type fakeSubscription struct {
	errCh chan error
	once  sync.Once
}

func (s *fakeSubscription) Err() <-chan error { return s.errCh }
func (s *fakeSubscription) Unsubscribe()      { s.once.Do(func() { close(s.errCh) }) }

// fakeLogSource records subscriptions and lets tests push batches or errors
// per event name.
type fakeLogSource struct {
	mu       sync.Mutex
	batches  map[string]chan<- []types.Log
	subs     map[string]*fakeSubscription
	blockTSF func(blockNumber uint64) (uint64, error)
}

func newFakeLogSource() *fakeLogSource {
	return &fakeLogSource{
		batches: make(map[string]chan<- []types.Log),
		subs:    make(map[string]*fakeSubscription),
	}
}

func (f *fakeLogSource) SubscribeEvent(_ context.Context, eventName string, batches chan<- []types.Log) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSubscription{errCh: make(chan error, 1)}
	f.batches[eventName] = batches
	f.subs[eventName] = sub
	return sub, nil
}

func (f *fakeLogSource) BlockTimestamp(_ context.Context, blockNumber uint64) (uint64, error) {
	if f.blockTSF != nil {
		return f.blockTSF(blockNumber)
	}
	return 1_700_000_000, nil
}

func (f *fakeLogSource) emit(eventName string, batch []types.Log) {
	f.mu.Lock()
	ch := f.batches[eventName]
	f.mu.Unlock()
	ch <- batch
}

func (f *fakeLogSource) fail(eventName string, err error) {
	f.mu.Lock()
	sub := f.subs[eventName]
	f.mu.Unlock()
	sub.errCh <- err
}

// escrowABI gives tests access to event ids and argument packing.
var escrowABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(DepositEscrowABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

func packArgs(eventName string, args ...any) []byte {
	data, err := escrowABI.Events[eventName].Inputs.NonIndexed().Pack(args...)
	if err != nil {
		panic(err)
	}
	return data
}

func depositCreatedLog(id int64, depositor, beneficiary common.Address, amount, start, end, autoRelease int64) types.Log {
	return types.Log{
		Topics: []common.Hash{
			escrowABI.Events[EventDepositCreated].ID,
			common.BigToHash(big.NewInt(id)),
			common.BytesToHash(depositor.Bytes()),
			common.BytesToHash(beneficiary.Bytes()),
		},
		Data: packArgs(EventDepositCreated,
			big.NewInt(amount), big.NewInt(start), big.NewInt(end), big.NewInt(autoRelease)),
		BlockNumber: 100,
	}
}

func depositPaidLog(id int64, depositor common.Address) types.Log {
	return types.Log{
		Topics: []common.Hash{
			escrowABI.Events[EventDepositPaid].ID,
			common.BigToHash(big.NewInt(id)),
			common.BytesToHash(depositor.Bytes()),
		},
		BlockNumber: 101,
	}
}

func disputeRaisedLog(id int64, beneficiary common.Address, claimed int64, evidenceHash string) types.Log {
	return types.Log{
		Topics: []common.Hash{
			escrowABI.Events[EventDisputeRaised].ID,
			common.BigToHash(big.NewInt(id)),
			common.BytesToHash(beneficiary.Bytes()),
		},
		Data:        packArgs(EventDisputeRaised, big.NewInt(claimed), evidenceHash),
		BlockNumber: 102,
	}
}
