// Package drivers builds the registry of database drivers linked into pdo.
package drivers

import (
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/database/mysql"
	"github.com/koustreak/pdo/internal/database/postgres"
	"github.com/koustreak/pdo/internal/database/sqlite"
)

// Default returns a registry holding every driver compiled into the binary,
// in the order pgsql, mysql, sqlite.
func Default() (*database.Registry, error) {
	return database.NewRegistry(
		postgres.Info(),
		mysql.Info(),
		sqlite.Info(),
	)
}
