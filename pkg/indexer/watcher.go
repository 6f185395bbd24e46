package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentvault/escrow-indexer/internal/metrics"
)

// Subscription is a single live event-name subscription on the log source.
type Subscription interface {
	// Err delivers at most one subscription failure.
	Err() <-chan error
	Unsubscribe()
}

// LogSource delivers contract logs in batches, one subscription per event
// name, and resolves block timestamps for events that need them. Replay and
// resubscription semantics belong to the source, not the watcher.
type LogSource interface {
	SubscribeEvent(ctx context.Context, eventName string, batches chan<- []types.Log) (Subscription, error)
	BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error)
}

// Watcher subscribes to every escrow contract event and dispatches decoded
// logs to the projectors. A failure on one subscription never tears down the
// others.
type Watcher struct {
	source   LogSource
	decoder  *EventDecoder
	deposits *DepositProjector
	disputes *DisputeProjector
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	subs   []Subscription
}

// NewWatcher creates a new event watcher
func NewWatcher(
	source LogSource,
	decoder *EventDecoder,
	deposits *DepositProjector,
	disputes *DisputeProjector,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		source:   source,
		decoder:  decoder,
		deposits: deposits,
		disputes: disputes,
		logger:   logger,
	}
}

// Start opens one subscription per contract event and begins dispatching.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Debug("Starting escrow event watchers")

	for _, eventName := range EventNames {
		batches := make(chan []types.Log)
		sub, err := w.source.SubscribeEvent(ctx, eventName, batches)
		if err != nil {
			w.Stop()
			return err
		}
		w.subs = append(w.subs, sub)

		w.wg.Add(1)
		go w.watchLoop(ctx, eventName, batches, sub)
	}

	w.logger.Info("Escrow event listeners started", zap.Int("subscriptions", len(w.subs)))
	return nil
}

// Stop cancels all subscriptions and waits for in-flight handlers.
func (w *Watcher) Stop() {
	w.logger.Info("Stopping escrow event watchers")
	if w.cancel != nil {
		w.cancel()
	}
	for _, sub := range w.subs {
		sub.Unsubscribe()
	}
	w.wg.Wait()
	w.logger.Info("Escrow event watchers stopped")
}

func (w *Watcher) watchLoop(ctx context.Context, eventName string, batches <-chan []types.Log, sub Subscription) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-sub.Err():
			if !ok {
				return
			}
			// This subscription dies; the others keep running
			w.logger.Error("Subscription failed",
				zap.String("event", eventName),
				zap.Error(err))
			return
		case batch := <-batches:
			w.handleBatch(ctx, eventName, batch)
		}
	}
}

func (w *Watcher) handleBatch(ctx context.Context, eventName string, batch []types.Log) {
	if len(batch) == 0 {
		return
	}
	if len(batch) > 1 {
		// Only the first log of a delivery is processed
		metrics.LogsDropped.WithLabelValues(eventName).Add(float64(len(batch) - 1))
		w.logger.Warn("Dropping extra logs from delivery batch",
			zap.String("event", eventName),
			zap.Int("dropped", len(batch)-1))
	}

	log := batch[0]
	metrics.LastSeenBlock.WithLabelValues(eventName).Set(float64(log.BlockNumber))

	logger := w.logger.With(
		zap.String("event", eventName),
		zap.String("delivery_id", uuid.NewString()),
		zap.Uint64("block", log.BlockNumber),
		zap.String("tx_hash", log.TxHash.Hex()))

	if err := w.dispatch(ctx, eventName, log, logger); err != nil {
		if errors.Is(err, errUndecodable) {
			metrics.EventsProcessed.WithLabelValues(eventName, "skipped").Inc()
			return
		}
		metrics.EventsProcessed.WithLabelValues(eventName, "error").Inc()
		logger.Error("Failed to handle event", zap.Error(err))
		return
	}
	metrics.EventsProcessed.WithLabelValues(eventName, "applied").Inc()
}

func (w *Watcher) dispatch(ctx context.Context, eventName string, log types.Log, logger *zap.Logger) error {
	switch eventName {
	case EventDepositCreated:
		ev, err := w.decoder.DecodeDepositCreated(log)
		if err != nil {
			return w.skipUndecodable(err, logger)
		}
		return w.deposits.HandleDepositCreated(ctx, ev)

	case EventDepositPaid:
		ev, err := w.decoder.DecodeDepositPaid(log)
		if err != nil {
			return w.skipUndecodable(err, logger)
		}
		return w.deposits.HandleDepositPaid(ctx, ev)

	case EventCleanExitConfirmed:
		ev, err := w.decoder.DecodeCleanExitConfirmed(log)
		if err != nil {
			return w.skipUndecodable(err, logger)
		}
		return w.deposits.HandleCleanExitConfirmed(ctx, ev)

	case EventAutoReleaseExecuted:
		ev, err := w.decoder.DecodeAutoReleaseExecuted(log)
		if err != nil {
			return w.skipUndecodable(err, logger)
		}
		return w.deposits.HandleAutoReleaseExecuted(ctx, ev)

	case EventDisputeRaised:
		ev, err := w.decoder.DecodeDisputeRaised(log)
		if err != nil {
			return w.skipUndecodable(err, logger)
		}
		// The poller has moved past this block, so a failed fetch drops
		// the event for good
		ts, err := w.source.BlockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return fmt.Errorf("failed to fetch block timestamp for block %d: %w", log.BlockNumber, err)
		}
		blockTime := time.Unix(int64(ts), 0).UTC()
		return w.disputes.HandleDisputeRaised(ctx, ev, blockTime)

	case EventDepositorResponded:
		ev, err := w.decoder.DecodeDepositorResponded(log)
		if err != nil {
			return w.skipUndecodable(err, logger)
		}
		return w.disputes.HandleDepositorResponded(ctx, ev)

	case EventResolverDecision:
		ev, err := w.decoder.DecodeResolverDecision(log)
		if err != nil {
			return w.skipUndecodable(err, logger)
		}
		return w.disputes.HandleResolverDecision(ctx, ev)

	case EventDisputeTimeout:
		ev, err := w.decoder.DecodeDisputeTimeout(log)
		if err != nil {
			return w.skipUndecodable(err, logger)
		}
		return w.disputes.HandleDisputeTimeout(ctx, ev)
	}

	logger.Error("Unknown event name", zap.String("event", eventName))
	return nil
}

// errUndecodable marks a log that does not decode against the contract ABI.
var errUndecodable = errors.New("undecodable log")

// skipUndecodable drops a log that does not decode against the contract ABI.
func (w *Watcher) skipUndecodable(err error, logger *zap.Logger) error {
	logger.Debug("Skipping undecodable log", zap.Error(err))
	return errUndecodable
}
