package indexerdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/rentvault/escrow-indexer/pkg/escrowstore"
	mghelper "github.com/rentvault/escrow-indexer/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating deposits table...")
		if err := mghelper.CreateSchema(ctx, db, &escrowstore.DepositDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &escrowstore.DepositDao{},
			"depositor_address", "beneficiary_address", "status")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping deposits table...")
		return mghelper.DropTables(ctx, db, &escrowstore.DepositDao{})
	})
}
