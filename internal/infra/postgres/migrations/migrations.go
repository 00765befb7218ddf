// Package migrations holds the Postgres schema for questions and statistics.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is filled by the numbered files of this package.
var Migrations = migrate.NewMigrations()
