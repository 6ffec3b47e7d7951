package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is populated by the numbered files in this package; bun derives
// each migration name from the registering file name.
var Migrations = migrate.NewMigrations()
