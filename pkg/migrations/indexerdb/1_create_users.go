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
		log.Println("creating users table...")
		return mghelper.CreateSchema(ctx, db, &escrowstore.UserDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping users table...")
		return mghelper.DropTables(ctx, db, &escrowstore.UserDao{})
	})
}
