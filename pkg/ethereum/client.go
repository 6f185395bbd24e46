// Package ethereum implements a polling log source for the escrow contract.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	gethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/rentvault/escrow-indexer/pkg/config"
	"github.com/rentvault/escrow-indexer/pkg/indexer"
)

// Client represents an Ethereum client bound to the escrow contract.
// It delivers contract logs by polling, which keeps it compatible with
// plain HTTP RPC endpoints.
type Client struct {
	config          *config.EthereumConfig
	client          *ethclient.Client
	contractAddress common.Address
	contractABI     abi.ABI
	logger          *zap.Logger
}

// NewClient creates a new Ethereum client
func NewClient(cfg *config.EthereumConfig, contractABI string, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	contractAddress := common.HexToAddress(cfg.ContractAddress)

	logger.Info("Connected to Ethereum",
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("contract", contractAddress.Hex()))

	return &Client{
		config:          cfg,
		client:          client,
		contractAddress: contractAddress,
		contractABI:     parsed,
		logger:          logger,
	}, nil
}

// Close closes the Ethereum client
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// GetLatestBlockNumber gets the latest block number
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// BlockTimestamp returns the unix timestamp of the given block.
func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, fmt.Errorf("failed to get block %d: %w", blockNumber, err)
	}
	return header.Time, nil
}

type pollSubscription struct {
	errCh  chan error
	cancel context.CancelFunc
	once   sync.Once
}

func (s *pollSubscription) Err() <-chan error {
	return s.errCh
}

func (s *pollSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// SubscribeEvent polls for logs of a single contract event and delivers each
// poll's matches as one batch on the provided channel.
func (c *Client) SubscribeEvent(ctx context.Context, eventName string, batches chan<- []types.Log) (indexer.Subscription, error) {
	event, ok := c.contractABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("unknown contract event: %s", eventName)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &pollSubscription{
		errCh:  make(chan error, 1),
		cancel: cancel,
	}

	go c.poll(ctx, eventName, event.ID, batches, sub)

	return sub, nil
}

func (c *Client) poll(ctx context.Context, eventName string, topic common.Hash, batches chan<- []types.Log, sub *pollSubscription) {
	fromBlock := uint64(c.config.StartBlock)
	c.logger.Info("Starting event poller",
		zap.String("event", eventName),
		zap.Uint64("from_block", fromBlock))

	currentBlock := fromBlock
	ticker := time.NewTicker(c.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			latestBlock, err := c.GetLatestBlockNumber(ctx)
			if err != nil {
				c.logger.Warn("Failed to get latest block",
					zap.String("event", eventName),
					zap.Error(err))
				continue
			}

			// Stay behind the head by the confirmation depth
			if latestBlock < uint64(c.config.ConfirmationBlocks) {
				continue
			}
			confirmedBlock := latestBlock - uint64(c.config.ConfirmationBlocks)
			if confirmedBlock <= currentBlock {
				continue
			}

			query := gethereum.FilterQuery{
				FromBlock: new(big.Int).SetUint64(currentBlock + 1),
				ToBlock:   new(big.Int).SetUint64(confirmedBlock),
				Addresses: []common.Address{c.contractAddress},
				Topics:    [][]common.Hash{{topic}},
			}

			logs, err := c.client.FilterLogs(ctx, query)
			if err != nil {
				c.logger.Warn("Failed to filter logs",
					zap.String("event", eventName),
					zap.Error(err))
				continue
			}

			if len(logs) > 0 {
				select {
				case batches <- logs:
				case <-ctx.Done():
					return
				}
			}

			currentBlock = confirmedBlock
		}
	}
}
