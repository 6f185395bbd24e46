package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	apphttp "github.com/rentvault/escrow-indexer/pkg/app/http"
	"github.com/rentvault/escrow-indexer/pkg/config"
	"github.com/rentvault/escrow-indexer/pkg/escrowstore"
	"github.com/rentvault/escrow-indexer/pkg/ethereum"
	"github.com/rentvault/escrow-indexer/pkg/indexer"
	"github.com/rentvault/escrow-indexer/pkg/pgutil"
	"github.com/rentvault/escrow-indexer/pkg/query"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("error creating logger: %s", err.Error())
	}
	defer func() { _ = logger.Sync() }()

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	store := escrowstore.NewStore(db)

	ethClient, err := ethereum.NewClient(&cfg.Ethereum, indexer.DepositEscrowABI, logger)
	if err != nil {
		logger.Fatal("Failed to create Ethereum client", zap.Error(err))
	}
	defer ethClient.Close()

	decoder, err := indexer.NewEventDecoder(common.HexToAddress(cfg.Ethereum.ContractAddress))
	if err != nil {
		logger.Fatal("Failed to create event decoder", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := indexer.NewWatcher(
		ethClient,
		decoder,
		indexer.NewDepositProjector(store, logger),
		indexer.NewDisputeProjector(store, logger),
		logger,
	)
	if err := watcher.Start(ctx); err != nil {
		logger.Fatal("Failed to start event watcher", zap.Error(err))
	}
	defer watcher.Stop()

	handler := query.NewHandler(query.NewService(store, logger), logger)

	if err := apphttp.ServeAndWait(ctx, handler.Routes(), logger, &cfg.Server); err != nil {
		logger.Fatal("Query API failed", zap.Error(err))
	}
}
