// Package indexerdb holds all the migrations for the indexer database
package indexerdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection all indexer database migrations register into
var Migrations = migrate.NewMigrations()
