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
		log.Println("creating disputes table...")
		if err := mghelper.CreateSchema(ctx, db, &escrowstore.DisputeDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &escrowstore.DisputeDao{}, "dispute_deadline")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping disputes table...")
		return mghelper.DropTables(ctx, db, &escrowstore.DisputeDao{})
	})
}
