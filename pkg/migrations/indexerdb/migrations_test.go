package indexerdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/rentvault/escrow-indexer/pkg/migrations/indexerdb"
	"github.com/rentvault/escrow-indexer/pkg/pgutil"
)

func TestMigrations(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, indexerdb.Migrations)
	require.NoError(t, migrator.Init(ctx))

	group, err := migrator.Migrate(ctx)
	require.NoError(t, err)
	require.False(t, group.IsZero())

	pgutil.AssertTableExists(t, db, "users")
	pgutil.AssertTableExists(t, db, "deposits")
	pgutil.AssertTableExists(t, db, "disputes")

	pgutil.AssertIndexExists(t, db, "idx_deposits_depositor_address")
	pgutil.AssertIndexExists(t, db, "idx_deposits_beneficiary_address")
	pgutil.AssertIndexExists(t, db, "idx_deposits_status")
	pgutil.AssertIndexExists(t, db, "idx_disputes_dispute_deadline")

	// All three migrations ran as one group, so rollback drops all of them
	_, err = migrator.Rollback(ctx)
	require.NoError(t, err)
	pgutil.AssertTableNotExists(t, db, "users")
	pgutil.AssertTableNotExists(t, db, "deposits")
	pgutil.AssertTableNotExists(t, db, "disputes")
}
